package handler

import (
	"net/http"

	"rapidroad/internal/middleware"
	"rapidroad/internal/model"
	"rapidroad/internal/service"
	"rapidroad/internal/token"
	"rapidroad/pkg/pagination"
	"rapidroad/pkg/response"

	"github.com/gin-gonic/gin"
)

// BootstrapTokenHeader carries the one-time secret for POST /admin/bootstrap.
const BootstrapTokenHeader = "X-Bootstrap-Token"

type UserHandler struct {
	userService service.UserService
	tokens      *token.Manager
}

// NewUserHandler sets up the routing dependencies for admin user endpoints
func NewUserHandler(userService service.UserService, tokens *token.Manager) *UserHandler {
	return &UserHandler{userService: userService, tokens: tokens}
}

// RegisterRoutes binds the endpoints to the /admin group
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Guarded by BOOTSTRAP_TOKEN instead of a session
	router.POST("/bootstrap", h.Bootstrap)

	admins := router.Group("", middleware.RequireRole(h.tokens, model.RoleAdmin, model.RoleSuperAdmin))
	{
		admins.POST("/users", h.CreateUser)
		admins.GET("/users", h.ListUsers)
		admins.GET("/users/:id", h.GetUser)
		admins.PATCH("/users/:id/status", h.UpdateUserStatus)
		admins.GET("/drivers", h.ListDrivers)
	}
}

// Bootstrap creates the first superadmin
// @Summary      Bootstrap superadmin
// @Description  Creates the first superadmin. Requires the X-Bootstrap-Token header and works only once.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        X-Bootstrap-Token  header    string                    true  "Bootstrap token"
// @Param        payload            body      service.BootstrapRequest  true  "Superadmin credentials"
// @Success      201                {object}  response.Response{data=service.UserResponse}
// @Failure      401                {object}  response.Response
// @Failure      403                {object}  response.Response
// @Failure      409                {object}  response.Response
// @Router       /admin/bootstrap [post]
func (h *UserHandler) Bootstrap(c *gin.Context) {
	var req service.BootstrapRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.Bootstrap(c.Request.Context(), c.GetHeader(BootstrapTokenHeader), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// CreateUser handles POST /admin/users
// @Summary      Create a new user
// @Description  Admins create customers and drivers; only a superadmin may create admins
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateUserRequest  true  "Create User Payload"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /admin/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	var req service.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.CreateUser(c.Request.Context(), who, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// ListUsers handles GET /admin/users
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        role    query     string  false  "Role filter"
// @Param        status  query     string  false  "Status filter"
// @Param        limit   query     int     false  "Page size (1-200, default 50)"
// @Param        offset  query     int     false  "Offset"
// @Success      200     {object}  response.Response{data=response.List}
// @Router       /admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	h.list(c, c.Query("role"))
}

// ListDrivers handles GET /admin/drivers
// @Summary      List drivers
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Status filter"
// @Param        limit   query     int     false  "Page size (1-200, default 50)"
// @Param        offset  query     int     false  "Offset"
// @Success      200     {object}  response.Response{data=response.List}
// @Router       /admin/drivers [get]
func (h *UserHandler) ListDrivers(c *gin.Context) {
	h.list(c, model.RoleDriver)
}

func (h *UserHandler) list(c *gin.Context, role string) {
	page := pagination.Parse(c)
	users, total, err := h.userService.ListUsers(c.Request.Context(), role, c.Query("status"), page.Limit, page.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, users, total, page)
}

// GetUser handles GET /admin/users/:id
// @Summary      Get user by ID
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.UserResponse}
// @Failure      404  {object}  response.Response
// @Router       /admin/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// UpdateUserStatus handles PATCH /admin/users/:id/status
// @Summary      Change account status
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                           true  "User ID"
// @Param        payload  body      service.UpdateUserStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /admin/users/{id}/status [patch]
func (h *UserHandler) UpdateUserStatus(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateUserStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.UpdateUserStatus(c.Request.Context(), who, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}
