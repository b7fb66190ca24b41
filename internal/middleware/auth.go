package middleware

import (
	"net/http"
	"strings"
	"time"

	"rapidroad/internal/token"
	"rapidroad/pkg/response"

	"github.com/gin-gonic/gin"
)

// Context keys set by RequireRole
const (
	UserIDKey   = "userID"
	UserRoleKey = "userRole"
	EmailKey    = "userEmail"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// CookieOptions controls how session cookies are written.
type CookieOptions struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (o CookieOptions) sameSite() http.SameSite {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	if o.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, opts CookieOptions, pair token.Pair) {
	c.SetSameSite(opts.sameSite())
	c.SetCookie(AccessCookie, pair.AccessToken, int(opts.AccessTTL.Seconds()), "/", "", opts.Secure, true)
	c.SetCookie(RefreshCookie, pair.RefreshToken, int(opts.RefreshTTL.Seconds()), "/", "", opts.Secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context, opts CookieOptions) {
	c.SetSameSite(opts.sameSite())
	c.SetCookie(AccessCookie, "", -1, "/", "", opts.Secure, true)
	c.SetCookie(RefreshCookie, "", -1, "/", "", opts.Secure, true)
}

// accessToken reads the access_token cookie first, then the Authorization header.
func accessToken(c *gin.Context) (string, string) {
	if tok, err := c.Cookie(AccessCookie); err == nil && tok != "" {
		return tok, ""
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "Authorization is missing"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

// RequireRole validates the access token and checks that its role is one of
// allowedRoles. With no roles given any authenticated principal passes.
func RequireRole(tokens *token.Manager, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, problem := accessToken(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, problem))
			return
		}

		principal, err := tokens.ParseAccess(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		if len(allowedRoles) > 0 {
			roleAllowed := false
			for _, role := range allowedRoles {
				if principal.Role == role {
					roleAllowed = true
					break
				}
			}
			if !roleAllowed {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
				return
			}
		}

		c.Set(UserIDKey, principal.ID)
		c.Set(UserRoleKey, principal.Role)
		c.Set(EmailKey, principal.Email)

		c.Next()
	}
}
