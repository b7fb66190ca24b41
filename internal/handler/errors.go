package handler

import (
	"log"
	"net/http"

	"rapidroad/internal/apperror"
	"rapidroad/internal/middleware"
	"rapidroad/internal/service"
	"rapidroad/pkg/pagination"
	"rapidroad/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var kindStatus = map[apperror.Kind]int{
	apperror.KindUnauthorized: http.StatusUnauthorized,
	apperror.KindForbidden:    http.StatusForbidden,
	apperror.KindNotFound:     http.StatusNotFound,
	apperror.KindConflict:     http.StatusConflict,
	apperror.KindBadRequest:   http.StatusBadRequest,
}

// respondError writes the envelope for err. Untyped errors become a bare 500
// and are only logged.
func respondError(c *gin.Context, err error) {
	if status, ok := kindStatus[apperror.KindOf(err)]; ok {
		c.JSON(status, response.Error(status, err.Error()))
		return
	}
	log.Printf("[HTTP] request_id=%s path=%s internal error: %v", middleware.GetRequestID(c), c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Internal server error"))
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return false
	}
	return true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// actor reads the principal RequireRole left in the context.
func actor(c *gin.Context) (service.Actor, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	id, isUUID := v.(uuid.UUID)
	if !ok || !isUUID {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "User ID not found in context"))
		return service.Actor{}, false
	}
	return service.Actor{ID: id, Role: c.GetString(middleware.UserRoleKey)}, true
}

func respondList(c *gin.Context, items interface{}, total int64, page pagination.Params) {
	c.JSON(http.StatusOK, response.Page(http.StatusOK, items, total, page.Limit, page.Offset))
}
