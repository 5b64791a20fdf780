package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusreg/service/internal/logging"
	appMiddleware "github.com/campusreg/service/internal/middleware"
	"github.com/campusreg/service/internal/session"
	"github.com/campusreg/service/internal/token"
)

// stub answers every route with the name of the handler method it reached.
type stub struct{}

func reply(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(name))
	}
}

func (stub) Signup(w http.ResponseWriter, r *http.Request)           { reply("Signup")(w, r) }
func (stub) Login(w http.ResponseWriter, r *http.Request)            { reply("Login")(w, r) }
func (stub) Logout(w http.ResponseWriter, r *http.Request)           { reply("Logout")(w, r) }
func (stub) VerifyEmail(w http.ResponseWriter, r *http.Request)      { reply("VerifyEmail")(w, r) }
func (stub) ResendEmail(w http.ResponseWriter, r *http.Request)      { reply("ResendEmail")(w, r) }
func (stub) ForgotPassword(w http.ResponseWriter, r *http.Request)   { reply("ForgotPassword")(w, r) }
func (stub) ResetPassword(w http.ResponseWriter, r *http.Request)    { reply("ResetPassword")(w, r) }
func (stub) GetProfile(w http.ResponseWriter, r *http.Request)       { reply("GetProfile")(w, r) }
func (stub) Create(w http.ResponseWriter, r *http.Request)           { reply("Create")(w, r) }
func (stub) List(w http.ResponseWriter, r *http.Request)             { reply("List")(w, r) }
func (stub) Update(w http.ResponseWriter, r *http.Request)           { reply("Update")(w, r) }
func (stub) Delete(w http.ResponseWriter, r *http.Request)           { reply("Delete")(w, r) }
func (stub) MyEvents(w http.ResponseWriter, r *http.Request)         { reply("MyEvents")(w, r) }
func (stub) Register(w http.ResponseWriter, r *http.Request)         { reply("Register")(w, r) }
func (stub) RegisteredEvents(w http.ResponseWriter, r *http.Request) { reply("RegisteredEvents")(w, r) }
func (stub) Upload(w http.ResponseWriter, r *http.Request)           { reply("Upload")(w, r) }
func (stub) UpdateStatus(w http.ResponseWriter, r *http.Request)     { reply("UpdateStatus")(w, r) }

type harness struct {
	router  http.Handler
	tokens  *token.Manager
	revoker *session.MemoryRevoker
}

func newHarness(limit int) *harness {
	h := &harness{
		tokens:  token.NewManager("routes-secret", time.Hour),
		revoker: session.NewMemoryRevoker(),
	}
	h.router = NewRouter(Deps{
		Auth:           stub{},
		Users:          stub{},
		Colleges:       stub{},
		Events:         stub{},
		Payments:       stub{},
		Verifier:       h.tokens,
		Revoker:        h.revoker,
		Limiter:        appMiddleware.NewRateLimiter(limit),
		AllowedOrigins: []string{"http://localhost:3000"},
		Log:            logging.Nop(),
	})
	return h
}

func (h *harness) cookie(t *testing.T, role string) string {
	t.Helper()
	raw, _, err := h.tokens.Issue("user-1", "a@example.com", role)
	require.NoError(t, err)
	return raw
}

func (h *harness) do(method, path, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: appMiddleware.CookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicRoutes(t *testing.T) {
	h := newHarness(100)

	cases := []struct{ method, path, handler string }{
		{http.MethodPost, "/user/signup", "Signup"},
		{http.MethodPost, "/user/login", "Login"},
		{http.MethodGet, "/verify?token=x", "VerifyEmail"},
		{http.MethodGet, "/resend-email?email=a@example.com", "ResendEmail"},
		{http.MethodPost, "/forgot-password", "ForgotPassword"},
		{http.MethodPost, "/reset-password", "ResetPassword"},
		{http.MethodPost, "/college/create", "Create"},
		{http.MethodGet, "/college/all", "List"},
		{http.MethodPut, "/college/update/abc", "Update"},
		{http.MethodDelete, "/college/delete/abc", "Delete"},
		{http.MethodGet, "/event/all", "List"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := h.do(tc.method, tc.path, "")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.handler, w.Body.String())
		})
	}
}

func TestRouter_ProtectedRoutes(t *testing.T) {
	h := newHarness(100)
	userCookie := h.cookie(t, appMiddleware.RoleUser)

	cases := []struct{ method, path, handler string }{
		{http.MethodGet, "/user/profile", "GetProfile"},
		{http.MethodPost, "/user/logout", "Logout"},
		{http.MethodPost, "/event/create", "Create"},
		{http.MethodPut, "/event/update/e1", "Update"},
		{http.MethodGet, "/event/my-events", "MyEvents"},
		{http.MethodPost, "/event/register/e1", "Register"},
		{http.MethodGet, "/event/registered-events", "RegisteredEvents"},
		{http.MethodPost, "/Upload-Payment-Info", "Upload"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := h.do(tc.method, tc.path, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			w = h.do(tc.method, tc.path, userCookie)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.handler, w.Body.String())
		})
	}
}

func TestRouter_PaymentAdminGate(t *testing.T) {
	h := newHarness(100)
	userCookie := h.cookie(t, appMiddleware.RoleUser)
	adminCookie := h.cookie(t, appMiddleware.RolePaymentAdmin)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/View-All-Payments"},
		{http.MethodPut, "/Update-Payment-Status/p1"},
	} {
		assert.Equal(t, http.StatusUnauthorized, h.do(route.method, route.path, "").Code)
		assert.Equal(t, http.StatusForbidden, h.do(route.method, route.path, userCookie).Code)
		assert.Equal(t, http.StatusOK, h.do(route.method, route.path, adminCookie).Code)
	}
}

func TestRouter_InvalidTokens(t *testing.T) {
	h := newHarness(100)

	other := token.NewManager("someone-else", time.Hour)
	forged, _, err := other.Issue("user-1", "a@example.com", appMiddleware.RolePaymentAdmin)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/View-All-Payments", forged).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/user/profile", "garbage").Code)

	raw := h.cookie(t, appMiddleware.RoleUser)
	claims := h.tokens.Verify(raw).Claims
	require.NoError(t, h.revoker.Revoke(context.Background(), claims.ID, claims.ExpiresAt.Time))
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/user/profile", raw).Code)
}

func TestRouter_CredentialRateLimit(t *testing.T) {
	h := newHarness(2)

	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/user/login", "").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/user/login", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, h.do(http.MethodPost, "/user/login", "").Code)

	// signup is not limited
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/user/signup", "").Code)
}

func TestRouter_HealthAndNotFound(t *testing.T) {
	h := newHarness(100)

	w := h.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/nope", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, h.do(http.MethodGet, "/user/signup", "").Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newHarness(100)
	req := httptest.NewRequest(http.MethodOptions, "/event/all", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()

	h.router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
