package handler

import (
	"net/http"

	"rapidroad/internal/middleware"
	"rapidroad/internal/model"
	"rapidroad/internal/service"
	"rapidroad/internal/token"
	"rapidroad/pkg/response"

	"github.com/gin-gonic/gin"
)

type DriverHandler struct {
	locationService service.DriverLocationService
	tokens          *token.Manager
}

func NewDriverHandler(locationService service.DriverLocationService, tokens *token.Manager) *DriverHandler {
	return &DriverHandler{locationService: locationService, tokens: tokens}
}

func (h *DriverHandler) RegisterRoutes(router *gin.RouterGroup) {
	drivers := router.Group("/drivers")
	drivers.Use(middleware.RequireRole(h.tokens, model.RoleDriver))
	{
		drivers.POST("/location", h.RecordLocation)
	}
}

// RecordLocation stores a GPS sample and relays it to dispatchers
// @Summary      Report driver location
// @Tags         drivers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.LocationUpdate  true  "GPS sample"
// @Success      201      {object}  response.Response{data=model.DriverLocation}
// @Failure      400      {object}  response.Response
// @Router       /drivers/location [post]
func (h *DriverHandler) RecordLocation(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req service.LocationUpdate
	if !bindJSON(c, &req) {
		return
	}
	loc, err := h.locationService.RecordLocation(c.Request.Context(), who.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, loc))
}
