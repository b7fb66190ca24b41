package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type MetricsHandler struct {
	exposition http.Handler
}

func NewMetricsHandler(exposition http.Handler) *MetricsHandler {
	return &MetricsHandler{exposition: exposition}
}

// RegisterRoutes serves the Prometheus text format on /metrics
// @Summary      Prometheus metrics
// @Tags         system
// @Produce      plain
// @Success      200  {string}  string
// @Router       /metrics [get]
func (h *MetricsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/metrics", gin.WrapH(h.exposition))
}
