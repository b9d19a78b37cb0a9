package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/pulsehub/pulsehub/internal/app"
	iauth "github.com/pulsehub/pulsehub/internal/auth"
	"github.com/pulsehub/pulsehub/internal/database/testutil"
)

func newTestRouter(t *testing.T, cfg *app.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-secret",
		Issuer:         "pulsehub",
		AccessTokenTTL: 15 * time.Minute,
	})
	require.NoError(t, err)

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)

	router, err := NewRouter(db, cfg, jwtSvc, sessionSvc)
	require.NoError(t, err)
	return router
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	cfg := &app.Config{}
	cfg.Gateway.BaseURL = "https://gateway.example.com"
	router := newTestRouter(t, cfg)

	// Health is public
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Protected endpoints reject anonymous callers
	for _, path := range []string{
		"/api/auth/me",
		"/api/projects",
		"/api/invitations",
		"/api/google-analytics/auth-url",
		"/api/stripe/auth-url",
	} {
		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	// Callbacks stay public: providers redirect browsers here without a token.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/stripe/callback", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	cfg := &app.Config{}
	cfg.Monitoring.Prometheus.Enabled = true
	router := newTestRouter(t, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t, &app.Config{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
