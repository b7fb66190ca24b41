package handler

import (
	"rapidroad/internal/service"
	"rapidroad/internal/token"
	"rapidroad/internal/websocket"

	"github.com/gin-gonic/gin"
)

// WSHandler upgrades /ws connections onto the notification hub.
type WSHandler struct {
	hub       *websocket.Hub
	tokens    *token.Manager
	locations service.DriverLocationService
}

func NewWSHandler(hub *websocket.Hub, tokens *token.Manager, locations service.DriverLocationService) *WSHandler {
	return &WSHandler{hub: hub, tokens: tokens, locations: locations}
}

func (h *WSHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(h.hub, c, h.tokens, h.locations)
	})
}
