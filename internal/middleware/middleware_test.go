package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rapidroad/internal/model"
	"rapidroad/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTokens() *token.Manager {
	return token.NewManager([]byte("access-secret"), []byte("refresh-secret"), time.Minute, time.Hour)
}

func protectedRouter(tokens *token.Manager, roles ...string) *gin.Engine {
	r := gin.New()
	r.GET("/private", RequireRole(tokens, roles...), func(c *gin.Context) {
		id, _ := c.Get(UserIDKey)
		c.String(http.StatusOK, id.(uuid.UUID).String()+" "+c.GetString(UserRoleKey))
	})
	return r
}

func issue(t *testing.T, tokens *token.Manager, role string) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	tok, err := tokens.IssueAccess(token.Principal{ID: id, Email: "x@example.com", Role: role})
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}
	return id, tok
}

func TestRequireRole(t *testing.T) {
	tokens := newTokens()
	r := protectedRouter(tokens, model.RoleAdmin, model.RoleSuperAdmin)
	adminID, adminTok := issue(t, tokens, model.RoleAdmin)
	_, driverTok := issue(t, tokens, model.RoleDriver)

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "bad scheme", header: "Token " + adminTok, want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "wrong role", header: "Bearer " + driverTok, want: http.StatusForbidden},
		{name: "bearer", header: "Bearer " + adminTok, want: http.StatusOK},
		{name: "cookie", cookie: adminTok, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusOK && w.Body.String() != adminID.String()+" "+model.RoleAdmin {
				t.Fatalf("unexpected context values %q", w.Body.String())
			}
		})
	}
}

func TestRequireRoleAnyAuthenticated(t *testing.T) {
	tokens := newTokens()
	r := protectedRouter(tokens)
	_, tok := issue(t, tokens, model.RoleCustomer)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestTokenCookies(t *testing.T) {
	opts := CookieOptions{Secure: true, AccessTTL: 15 * time.Minute, RefreshTTL: time.Hour}
	r := gin.New()
	r.POST("/login", func(c *gin.Context) {
		SetTokenCookies(c, opts, token.Pair{AccessToken: "a", RefreshToken: "r"})
	})
	r.POST("/logout", func(c *gin.Context) {
		ClearTokenCookies(c, opts)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookies := w.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("got %d cookies", len(cookies))
	}
	for _, ck := range cookies {
		if !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteNoneMode {
			t.Errorf("cookie %s has wrong flags: %+v", ck.Name, ck)
		}
	}
	if cookies[0].Name != AccessCookie || cookies[0].MaxAge != 900 {
		t.Errorf("unexpected access cookie %+v", cookies[0])
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/logout", nil))
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge >= 0 {
			t.Errorf("cookie %s not cleared", ck.Name)
		}
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	rid := w.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(rid); err != nil || w.Body.String() != rid {
		t.Fatalf("generated request id %q, body %q", rid, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) != "upstream-42" {
		t.Fatalf("incoming request id not propagated: %q", w.Header().Get(RequestIDHeader))
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 2)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/v1/auth/login", rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := hit("10.0.0.1"); code != http.StatusNoContent {
			t.Fatalf("request %d = %d", i, code)
		}
	}
	if code := hit("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", code)
	}
	if code := hit("10.0.0.2"); code != http.StatusNoContent {
		t.Fatalf("other client limited: %d", code)
	}

	now = now.Add(30 * time.Second)
	if code := hit("10.0.0.1"); code != http.StatusNoContent {
		t.Fatalf("token should refill after half a window, got %d", code)
	}
}

func TestRateLimiterSweepsIdleVisitorsPeriodically(t *testing.T) {
	rl := NewRateLimiter(time.Minute, 5)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.allow("10.0.0.1")
	rl.allow("10.0.0.2")

	// Still inside the sweep interval: idle entries are left alone.
	now = now.Add(idleAfter - time.Minute)
	rl.allow("10.0.0.3")
	if n := len(rl.visitors); n != 3 {
		t.Fatalf("visitors = %d before the sweep interval, want 3", n)
	}

	now = now.Add(2 * time.Minute)
	rl.allow("10.0.0.3")
	if n := len(rl.visitors); n != 1 {
		t.Fatalf("visitors = %d after sweep, want 1", n)
	}
	if _, ok := rl.visitors["10.0.0.3"]; !ok {
		t.Fatal("active visitor was evicted")
	}
}
