package handler

import (
	"rapidroad/internal/middleware"
	"rapidroad/internal/model"
	"rapidroad/internal/service"
	"rapidroad/internal/token"
	"rapidroad/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	tokens       *token.Manager
}

func NewAuditHandler(auditService service.AuditService, tokens *token.Manager) *AuditHandler {
	return &AuditHandler{auditService: auditService, tokens: tokens}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs")
	group.Use(middleware.RequireRole(h.tokens, model.RoleAdmin, model.RoleSuperAdmin)) // Protect history logs
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated records with the acting user preloaded
// @Summary      Get audit logs
// @Description  Newest first; optionally filtered by action (e.g. ASSIGN_DRIVER)
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        action  query     string  false  "Action filter"
// @Param        limit   query     int     false  "Page size (1-200, default 50)"
// @Param        offset  query     int     false  "Offset"
// @Success      200     {object}  response.Response{data=response.List}
// @Router       /admin/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	page := pagination.Parse(c)
	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), c.Query("action"), page.Limit, page.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, logs, total, page)
}
