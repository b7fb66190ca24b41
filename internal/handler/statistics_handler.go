package handler

import (
	"net/http"
	"time"

	"rapidroad/internal/middleware"
	"rapidroad/internal/model"
	"rapidroad/internal/service"
	"rapidroad/internal/token"
	"rapidroad/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	tokens            *token.Manager
}

func NewStatisticsHandler(statisticsService service.StatisticsService, tokens *token.Manager) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, tokens: tokens}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/statistics")
	{
		statsGroup.GET("", middleware.RequireRole(h.tokens, model.RoleAdmin, model.RoleSuperAdmin), h.GetStatistics)
	}
}

// @Summary      Get Dashboard Statistics
// @Description  Booking and trip counts by status, completed distance and active drivers bounded by time
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339)"
// @Param        end_date   query string false "End Date (RFC3339)"
// @Success      200 {object} response.Response{data=model.StatisticsResponse}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      401 {object} response.Response "Unauthorized"
// @Failure      500 {object} response.Response "Internal server error"
// @Security     BearerAuth
// @Router       /admin/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	from, ok := queryTime(c, "start_date", monthStart)
	if !ok {
		return
	}
	to, ok := queryTime(c, "end_date", now)
	if !ok {
		return
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// queryTime reads an RFC3339 query parameter, using fallback when it is absent.
func queryTime(c *gin.Context, name string, fallback time.Time) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid "+name+" format, expected RFC3339"))
		return time.Time{}, false
	}
	return t, true
}
