package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pulsehub/pulsehub/internal/gateway"
	"github.com/pulsehub/pulsehub/internal/models"
	"github.com/pulsehub/pulsehub/internal/services"
	"github.com/pulsehub/pulsehub/pkg/response"
)

func newConnectionRouter(t *testing.T, db *gorm.DB, user *models.User, gatewayURL string) *gin.Engine {
	t.Helper()

	projectService, err := services.NewProjectService(db, nil)
	require.NoError(t, err)

	client, err := gateway.NewClient(gateway.Config{BaseURL: gatewayURL})
	require.NoError(t, err)

	h := NewConnectionHandler(projectService, client, "")

	r := gin.New()
	authed := r.Group("/api", identityStub(user))
	authed.GET("/google-analytics/auth-url", h.AuthURL(gateway.ProviderGoogleAnalytics))
	authed.GET("/stripe/auth-url", h.AuthURL(gateway.ProviderStripe))

	// Provider redirects carry no Authorization header.
	r.GET("/api/google-analytics/callback", h.Callback(gateway.ProviderGoogleAnalytics))
	r.GET("/api/stripe/callback", h.Callback(gateway.ProviderStripe))
	return r
}

func TestAuthURLReturnsGatewayURL(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "alice")
	project := seedProject(t, db, user, "Shop")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/google-analytics/auth-url", r.URL.Path)
		require.Equal(t, project.ID, r.URL.Query().Get("project_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"auth_url":"https://accounts.google.com/auth?state=abc"}`))
	}))
	defer srv.Close()

	r := newConnectionRouter(t, db, user, srv.URL)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/google-analytics/auth-url?project_id="+project.ID, nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.True(t, payload.Success)
	data := payload.Data.(map[string]any)
	require.Equal(t, "https://accounts.google.com/auth?state=abc", data["auth_url"])
}

func TestAuthURLRejectsEmptyGatewayAnswer(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "bob")
	project := seedProject(t, db, user, "Shop")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"auth_url":""}`))
	}))
	defer srv.Close()

	r := newConnectionRouter(t, db, user, srv.URL)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stripe/auth-url?project_id="+project.ID, nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadGateway, w.Code)
	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.False(t, payload.Success)
	// No auth_url sneaks into an error payload.
	require.Nil(t, payload.Data)
}

func TestAuthURLRequiresMembership(t *testing.T) {
	db := openTestDB(t)
	owner := seedUser(t, db, "carol")
	outsider := seedUser(t, db, "dan")
	project := seedProject(t, db, owner, "Shop")

	r := newConnectionRouter(t, db, outsider, "https://gateway.invalid")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stripe/auth-url?project_id="+project.ID, nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestCallbackFlipsFlagAndRedirects(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "erin")
	project := seedProject(t, db, user, "Shop")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stripe/callback", r.URL.Path)
		require.Equal(t, "auth-code", r.URL.Query().Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","message":"Stripe connected","project_id":"` + project.ID + `"}`))
	}))
	defer srv.Close()

	r := newConnectionRouter(t, db, user, srv.URL)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stripe/callback?code=auth-code&state=xyz", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, DefaultRedirectPath, location.Path)
	require.Equal(t, "success", location.Query().Get("connection"))
	require.Equal(t, "Stripe connected", location.Query().Get("message"))
	require.Equal(t, "stripe", location.Query().Get("source"))

	var stored models.Project
	require.NoError(t, db.Where("id = ?", project.ID).Take(&stored).Error)
	require.True(t, stored.Stripe)
	require.False(t, stored.GoogleAnalytics)
}

func TestCallbackGatewayFailureLeavesFlagsUntouched(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "frank")
	project := seedProject(t, db, user, "Shop")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"error","message":"code already used","project_id":"` + project.ID + `"}`))
	}))
	defer srv.Close()

	r := newConnectionRouter(t, db, user, srv.URL)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/google-analytics/callback?code=auth-code", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "error", location.Query().Get("connection"))
	require.Equal(t, "code already used", location.Query().Get("message"))
	require.Equal(t, "google-analytics", location.Query().Get("source"))

	var stored models.Project
	require.NoError(t, db.Where("id = ?", project.ID).Take(&stored).Error)
	require.False(t, stored.GoogleAnalytics)
	require.False(t, stored.Stripe)
}

func TestCallbackWithoutCodeRedirectsWithError(t *testing.T) {
	db := openTestDB(t)
	user := seedUser(t, db, "grace")

	r := newConnectionRouter(t, db, user, "https://gateway.invalid")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stripe/callback", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "error", location.Query().Get("connection"))
	require.Equal(t, "stripe", location.Query().Get("source"))
}
