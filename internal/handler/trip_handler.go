package handler

import (
	"context"
	"net/http"

	"rapidroad/internal/middleware"
	"rapidroad/internal/model"
	"rapidroad/internal/service"
	"rapidroad/internal/token"
	"rapidroad/pkg/pagination"
	"rapidroad/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TripHandler serves the dispatch endpoints: assignment by admins and the
// driver-side trip lifecycle.
type TripHandler struct {
	dispatchService service.DispatchService
	tokens          *token.Manager
}

func NewTripHandler(dispatchService service.DispatchService, tokens *token.Manager) *TripHandler {
	return &TripHandler{dispatchService: dispatchService, tokens: tokens}
}

func (h *TripHandler) RegisterRoutes(router *gin.RouterGroup) {
	dispatch := router.Group("/dispatch")
	dispatch.Use(middleware.RequireRole(h.tokens, model.RoleAdmin, model.RoleSuperAdmin))
	{
		dispatch.POST("/:bookingId/assign-driver", h.AssignDriver)
	}

	trips := router.Group("/trips")
	trips.Use(middleware.RequireRole(h.tokens, model.RoleDriver, model.RoleAdmin, model.RoleSuperAdmin))
	{
		trips.GET("", h.ListTrips)
		trips.GET("/:tripId", h.GetTrip)
	}
	driverOnly := trips.Group("", middleware.RequireRole(h.tokens, model.RoleDriver))
	{
		driverOnly.POST("/:tripId/accept", h.transition(h.dispatchService.AcceptTrip))
		driverOnly.POST("/:tripId/start", h.transition(h.dispatchService.StartTrip))
		driverOnly.POST("/:tripId/complete", h.CompleteTrip)
	}
}

// AssignDriver assigns or reassigns a driver to a booking
// @Summary      Assign driver
// @Tags         dispatch
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        bookingId  path      string                       true  "Booking ID"
// @Param        payload    body      service.AssignDriverRequest  true  "Driver"
// @Success      200        {object}  response.Response{data=service.TripResponse}
// @Failure      400        {object}  response.Response
// @Failure      404        {object}  response.Response
// @Router       /dispatch/{bookingId}/assign-driver [post]
func (h *TripHandler) AssignDriver(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	bookingID, ok := uuidParam(c, "bookingId")
	if !ok {
		return
	}
	var req service.AssignDriverRequest
	if !bindJSON(c, &req) {
		return
	}
	driverID, err := uuid.Parse(req.DriverID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid driver_id"))
		return
	}
	trip, err := h.dispatchService.AssignDriver(c.Request.Context(), who, bookingID, driverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, trip))
}

type tripTransition func(ctx context.Context, actor service.Actor, tripID uuid.UUID) (*service.TripResponse, error)

// transition adapts accept and start, which take no body.
// @Summary      Accept or start a trip
// @Tags         trips
// @Produce      json
// @Security     BearerAuth
// @Param        tripId  path      string  true  "Trip ID"
// @Success      200     {object}  response.Response{data=service.TripResponse}
// @Failure      400     {object}  response.Response
// @Failure      403     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Router       /trips/{tripId}/accept [post]
// @Router       /trips/{tripId}/start [post]
func (h *TripHandler) transition(fn tripTransition) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := actor(c)
		if !ok {
			return
		}
		tripID, ok := uuidParam(c, "tripId")
		if !ok {
			return
		}
		trip, err := fn(c.Request.Context(), who, tripID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, trip))
	}
}

// CompleteTrip finishes a started trip
// @Summary      Complete trip
// @Tags         trips
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        tripId   path      string                       true   "Trip ID"
// @Param        payload  body      service.CompleteTripRequest  false  "Measured distance and duration"
// @Success      200      {object}  response.Response{data=service.TripResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /trips/{tripId}/complete [post]
func (h *TripHandler) CompleteTrip(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	tripID, ok := uuidParam(c, "tripId")
	if !ok {
		return
	}
	var req service.CompleteTripRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	trip, err := h.dispatchService.CompleteTrip(c.Request.Context(), who, tripID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, trip))
}

// @Summary      List trips
// @Description  Drivers see their own trips, admins see all
// @Tags         trips
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Trip status"
// @Param        limit   query     int     false  "Page size (1-200, default 50)"
// @Param        offset  query     int     false  "Offset"
// @Success      200     {object}  response.Response{data=response.List}
// @Router       /trips [get]
func (h *TripHandler) ListTrips(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	page := pagination.Parse(c)
	items, total, err := h.dispatchService.ListTrips(c.Request.Context(), who, c.Query("status"), page.Limit, page.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, items, total, page)
}

// @Summary      Get trip
// @Tags         trips
// @Produce      json
// @Security     BearerAuth
// @Param        tripId  path      string  true  "Trip ID"
// @Success      200     {object}  response.Response{data=service.TripResponse}
// @Failure      403     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Router       /trips/{tripId} [get]
func (h *TripHandler) GetTrip(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	tripID, ok := uuidParam(c, "tripId")
	if !ok {
		return
	}
	trip, err := h.dispatchService.GetTrip(c.Request.Context(), who, tripID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, trip))
}
