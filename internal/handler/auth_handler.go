package handler

import (
	"net/http"

	"rapidroad/internal/middleware"
	"rapidroad/internal/service"
	"rapidroad/internal/token"
	"rapidroad/pkg/response"

	"github.com/gin-gonic/gin"
)

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ConsumeMagicLinkRequest struct {
	Token string `json:"token" binding:"required"`
}

type AuthHandler struct {
	authService service.AuthService
	tokens      *token.Manager
	cookies     middleware.CookieOptions
}

func NewAuthHandler(authService service.AuthService, tokens *token.Manager, cookies middleware.CookieOptions) *AuthHandler {
	return &AuthHandler{authService: authService, tokens: tokens, cookies: cookies}
}

// RegisterRoutes binds the endpoints under /auth
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)
	router.POST("/magic-link", h.RequestMagicLink)
	router.POST("/magic-link/consume", h.ConsumeMagicLink)
	router.POST("/refresh", h.Refresh)
	router.POST("/logout", h.Logout)

	router.GET("/me", middleware.RequireRole(h.tokens), h.GetMe)
}

func (h *AuthHandler) writeSession(c *gin.Context, status int, session *service.SessionResponse) {
	middleware.SetTokenCookies(c, h.cookies, session.Pair)
	c.JSON(status, response.Success(status, session))
}

// refreshToken prefers the body and falls back to the refresh_token cookie.
func refreshToken(c *gin.Context) string {
	var req RefreshRequest
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&req)
	}
	if req.RefreshToken != "" {
		return req.RefreshToken
	}
	tok, _ := c.Cookie(middleware.RefreshCookie)
	return tok
}

// Register creates a customer account with a password
// @Summary      Register customer
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "Credentials"
// @Success      201      {object}  response.Response{data=service.SessionResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.writeSession(c, http.StatusCreated, session)
}

// Login handles POST /auth/login to authenticate and return a token pair
// @Summary      Login user
// @Description  Authenticates a user by email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.SessionResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}
	session, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.writeSession(c, http.StatusOK, session)
}

// RequestMagicLink always answers with the same message
// @Summary      Request magic sign-in link
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.MagicLinkRequest  true  "Email and tenant"
// @Success      200      {object}  response.Response{data=service.MagicLinkResponse}
// @Failure      400      {object}  response.Response
// @Router       /auth/magic-link [post]
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req service.MagicLinkRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.authService.RequestMagicLink(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ConsumeMagicLink exchanges a one-time token for a session
// @Summary      Consume magic link
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      ConsumeMagicLinkRequest  true  "Magic token"
// @Success      200      {object}  response.Response{data=service.SessionResponse}
// @Failure      401      {object}  response.Response
// @Router       /auth/magic-link/consume [post]
func (h *AuthHandler) ConsumeMagicLink(c *gin.Context) {
	var req ConsumeMagicLinkRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.authService.ConsumeMagicLink(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	h.writeSession(c, http.StatusOK, session)
}

// Refresh rotates the refresh token
// @Summary      Refresh session
// @Description  Accepts the refresh token from the body or the refresh_token cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      RefreshRequest  false  "Refresh token"
// @Success      200      {object}  response.Response{data=service.SessionResponse}
// @Failure      401      {object}  response.Response
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	session, err := h.authService.Refresh(c.Request.Context(), refreshToken(c))
	if err != nil {
		middleware.ClearTokenCookies(c, h.cookies)
		respondError(c, err)
		return
	}
	h.writeSession(c, http.StatusOK, session)
}

// Logout revokes the refresh token and clears cookies
// @Summary      Logout
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      RefreshRequest  false  "Refresh token"
// @Success      200      {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), refreshToken(c)); err != nil {
		respondError(c, err)
		return
	}
	middleware.ClearTokenCookies(c, h.cookies)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Logged out successfully"}))
}

// GetMe returns the authenticated user
// @Summary      Get current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      401      {object}  response.Response
// @Router       /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	user, err := h.authService.Me(c.Request.Context(), who.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}
