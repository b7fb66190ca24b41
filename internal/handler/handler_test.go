package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rapidroad/internal/apperror"
	"rapidroad/internal/metrics"
	"rapidroad/internal/middleware"
	"rapidroad/internal/model"
	"rapidroad/internal/service"
	"rapidroad/internal/token"
	"rapidroad/internal/websocket"
	"rapidroad/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testTokens = token.NewManager([]byte("access-secret"), []byte("refresh-secret"), time.Minute, time.Hour)

func bearer(t *testing.T, role string) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	tok, err := testTokens.IssueAccess(token.Principal{ID: id, Email: role + "@example.com", Role: role})
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}
	return id, "Bearer " + tok
}

func do(r http.Handler, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var res response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid envelope %q: %v", w.Body.String(), err)
	}
	return res
}

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperror.Unauthorized("no"), http.StatusUnauthorized},
		{apperror.Forbidden("no"), http.StatusForbidden},
		{apperror.NotFound("no"), http.StatusNotFound},
		{apperror.Conflict("no"), http.StatusConflict},
		{apperror.BadRequest("no"), http.StatusBadRequest},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/", func(c *gin.Context) { respondError(c, tc.err) })
		w := do(r, http.MethodGet, "/", "", nil)
		if w.Code != tc.want {
			t.Errorf("%v -> %d, want %d", tc.err, w.Code, tc.want)
		}
		res := decode(t, w)
		if res.Status != "error" || res.StatusCode != tc.want {
			t.Errorf("unexpected envelope %+v", res)
		}
		if tc.want == http.StatusInternalServerError && res.Error != "Internal server error" {
			t.Errorf("internal error leaked: %q", res.Error)
		}
	}
}

type fakeDispatch struct {
	service.DispatchService
	accept func(actor service.Actor, tripID uuid.UUID) (*service.TripResponse, error)
	assign func(actor service.Actor, bookingID, driverID uuid.UUID) (*service.TripResponse, error)
}

func (f *fakeDispatch) AcceptTrip(_ context.Context, actor service.Actor, tripID uuid.UUID) (*service.TripResponse, error) {
	return f.accept(actor, tripID)
}

func (f *fakeDispatch) AssignDriver(_ context.Context, actor service.Actor, bookingID, driverID uuid.UUID) (*service.TripResponse, error) {
	return f.assign(actor, bookingID, driverID)
}

func tripRouter(d service.DispatchService) *gin.Engine {
	r := gin.New()
	NewTripHandler(d, testTokens).RegisterRoutes(r.Group("/v1"))
	return r
}

func TestAcceptTripRoute(t *testing.T) {
	tripID := uuid.New()
	var seen service.Actor
	d := &fakeDispatch{accept: func(actor service.Actor, id uuid.UUID) (*service.TripResponse, error) {
		seen = actor
		if id != tripID {
			return nil, apperror.NotFound("trip not found")
		}
		return &service.TripResponse{ID: id, Status: model.TripAccepted}, nil
	}}
	r := tripRouter(d)
	driverID, driverAuth := bearer(t, model.RoleDriver)
	_, adminAuth := bearer(t, model.RoleAdmin)

	w := do(r, http.MethodPost, "/v1/trips/"+tripID.String()+"/accept", driverAuth, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if seen.ID != driverID || seen.Role != model.RoleDriver {
		t.Fatalf("actor = %+v", seen)
	}

	if w := do(r, http.MethodPost, "/v1/trips/"+tripID.String()+"/accept", adminAuth, nil); w.Code != http.StatusForbidden {
		t.Fatalf("admin accept = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/v1/trips/"+uuid.NewString()+"/accept", driverAuth, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown trip = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/v1/trips/not-a-uuid/accept", driverAuth, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/v1/trips/"+tripID.String()+"/accept", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d", w.Code)
	}
}

func TestAssignDriverRoute(t *testing.T) {
	bookingID, driverID := uuid.New(), uuid.New()
	d := &fakeDispatch{assign: func(_ service.Actor, b, dr uuid.UUID) (*service.TripResponse, error) {
		if b != bookingID || dr != driverID {
			t.Errorf("assign(%s, %s)", b, dr)
		}
		return &service.TripResponse{BookingID: b, DriverID: dr, Status: model.TripPending}, nil
	}}
	r := tripRouter(d)
	_, adminAuth := bearer(t, model.RoleAdmin)
	_, customerAuth := bearer(t, model.RoleCustomer)
	path := "/v1/dispatch/" + bookingID.String() + "/assign-driver"

	if w := do(r, http.MethodPost, path, adminAuth, map[string]string{"driver_id": driverID.String()}); w.Code != http.StatusOK {
		t.Fatalf("assign = %d (%s)", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, path, adminAuth, map[string]string{"driver_id": "nope"}); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid driver id = %d", w.Code)
	}
	if w := do(r, http.MethodPost, path, customerAuth, map[string]string{"driver_id": driverID.String()}); w.Code != http.StatusForbidden {
		t.Fatalf("customer assign = %d", w.Code)
	}
}

type fakeAuth struct {
	service.AuthService
	refreshed string
}

func (f *fakeAuth) Login(_ context.Context, req service.LoginRequest) (*service.SessionResponse, error) {
	if req.Password != "password123" {
		return nil, apperror.Unauthorized("invalid credentials")
	}
	return &service.SessionResponse{Pair: token.Pair{AccessToken: "access", RefreshToken: "refresh"}}, nil
}

func (f *fakeAuth) Refresh(_ context.Context, refreshToken string) (*service.SessionResponse, error) {
	f.refreshed = refreshToken
	if refreshToken == "" {
		return nil, apperror.Unauthorized("invalid refresh token")
	}
	return &service.SessionResponse{Pair: token.Pair{AccessToken: "access2", RefreshToken: "refresh2"}}, nil
}

func TestLoginSetsCookiesAndRefreshReadsThem(t *testing.T) {
	auth := &fakeAuth{}
	r := gin.New()
	NewAuthHandler(auth, testTokens, middleware.CookieOptions{AccessTTL: time.Minute, RefreshTTL: time.Hour}).RegisterRoutes(r.Group("/v1/auth"))

	w := do(r, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "a@example.com", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password = %d", w.Code)
	}

	w = do(r, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "a@example.com", "password": "password123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d (%s)", w.Code, w.Body.String())
	}
	var refresh *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == middleware.RefreshCookie {
			refresh = ck
		}
	}
	if refresh == nil || refresh.Value != "refresh" {
		t.Fatal("refresh cookie not set")
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	req.AddCookie(refresh)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || auth.refreshed != "refresh" {
		t.Fatalf("refresh via cookie = %d, token %q", w.Code, auth.refreshed)
	}

	w = do(r, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": "from-body"})
	if w.Code != http.StatusOK || auth.refreshed != "from-body" {
		t.Fatalf("refresh via body = %d, token %q", w.Code, auth.refreshed)
	}

	if w := do(r, http.MethodPost, "/v1/auth/refresh", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh without token = %d", w.Code)
	}
}

type fakeUsers struct {
	service.UserService
	bootstrapToken string
}

func (f *fakeUsers) Bootstrap(_ context.Context, tok string, req service.BootstrapRequest) (*service.UserResponse, error) {
	f.bootstrapToken = tok
	return &service.UserResponse{Email: req.Email, Role: model.RoleSuperAdmin}, nil
}

func (f *fakeUsers) ListUsers(_ context.Context, role, status string, limit, offset int) ([]service.UserResponse, int64, error) {
	return []service.UserResponse{{Role: role, Status: status}}, 1, nil
}

func TestAdminUserRoutes(t *testing.T) {
	users := &fakeUsers{}
	r := gin.New()
	NewUserHandler(users, testTokens).RegisterRoutes(r.Group("/v1/admin"))

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/bootstrap",
		bytes.NewBufferString(`{"email":"root@example.com","password":"password123"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(BootstrapTokenHeader, "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated || users.bootstrapToken != "secret" {
		t.Fatalf("bootstrap = %d, token %q", w.Code, users.bootstrapToken)
	}

	_, adminAuth := bearer(t, model.RoleAdmin)
	_, driverAuth := bearer(t, model.RoleDriver)
	if w := do(r, http.MethodGet, "/v1/admin/drivers", driverAuth, nil); w.Code != http.StatusForbidden {
		t.Fatalf("driver listing drivers = %d", w.Code)
	}

	w = do(r, http.MethodGet, "/v1/admin/drivers?limit=1000&status=active", adminAuth, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list drivers = %d", w.Code)
	}
	var body struct {
		Data struct {
			Items []service.UserResponse `json:"items"`
			Total int64                  `json:"total"`
			Limit int                    `json:"limit"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Limit != 200 || body.Data.Total != 1 || body.Data.Items[0].Role != model.RoleDriver || body.Data.Items[0].Status != "active" {
		t.Fatalf("unexpected list %+v", body.Data)
	}
}

type fakeStats struct{ service.StatisticsService }

func (fakeStats) GetStatistics(_ context.Context, start, end time.Time) (model.StatisticsResponse, error) {
	return model.StatisticsResponse{TimeRangeStartDate: start, TimeRangeEndDate: end}, nil
}

func TestStatisticsDateValidation(t *testing.T) {
	r := gin.New()
	NewStatisticsHandler(fakeStats{}, testTokens).RegisterRoutes(r.Group("/v1/admin"))
	_, adminAuth := bearer(t, model.RoleAdmin)

	if w := do(r, http.MethodGet, "/v1/admin/statistics?start_date=yesterday", adminAuth, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad date = %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/v1/admin/statistics?start_date=2026-01-01T00:00:00Z", adminAuth, nil); w.Code != http.StatusOK {
		t.Fatalf("valid date = %d", w.Code)
	}
}

func TestCreateBookingRejectsBadPayload(t *testing.T) {
	r := gin.New()
	NewBookingHandler(nil, nil, testTokens).RegisterRoutes(r.Group("/v1"))
	_, customerAuth := bearer(t, model.RoleCustomer)
	_, driverAuth := bearer(t, model.RoleDriver)

	w := do(r, http.MethodPost, "/v1/bookings", customerAuth, map[string]interface{}{
		"pickup_address":  "A",
		"dropoff_address": "B",
		"pickup_lat":      100,
		"pickup_lon":      0,
		"dropoff_lat":     0,
		"dropoff_lon":     0,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range latitude = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/v1/bookings", driverAuth, map[string]string{}); w.Code != http.StatusForbidden {
		t.Fatalf("driver create = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }

	r := gin.New()
	NewHealthHandler(map[string]HealthCheck{"database": ok}).RegisterRoutes(r.Group(""))
	if w := do(r, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("healthy = %d", w.Code)
	}

	r = gin.New()
	NewHealthHandler(map[string]HealthCheck{"database": ok, "redis": down}).RegisterRoutes(r.Group(""))
	if w := do(r, http.MethodGet, "/health", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("degraded = %d", w.Code)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(middleware.Metrics(m))
	NewHealthHandler(map[string]HealthCheck{}).RegisterRoutes(r.Group(""))
	NewMetricsHandler(m.Handler()).RegisterRoutes(r.Group(""))

	if w := do(r, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}

	w := do(r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{
		"# TYPE go_goroutines gauge",
		"# TYPE rapidroad_http_requests_total counter",
		`rapidroad_http_requests_total{method="GET",route="/health",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestWebsocketRouteRegistered(t *testing.T) {
	r := gin.New()
	NewWSHandler(websocket.NewHub(), testTokens, nil).RegisterRoutes(r.Group(""))

	// A plain GET is not an upgrade, so the route answers 400 instead of 404.
	if w := do(r, http.MethodGet, "/ws", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("GET /ws = %d, want 400", w.Code)
	}
}
