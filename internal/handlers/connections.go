package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pulsehub/pulsehub/internal/gateway"
	"github.com/pulsehub/pulsehub/internal/services"
	"github.com/pulsehub/pulsehub/pkg/errors"
	"github.com/pulsehub/pulsehub/pkg/logger"
	"github.com/pulsehub/pulsehub/pkg/response"
)

// DefaultRedirectPath is where OAuth callbacks send the browser afterwards.
const DefaultRedirectPath = "/profile/connect"

// ConnectionHandler drives the OAuth connection flow against the remote gateway.
type ConnectionHandler struct {
	projects     *services.ProjectService
	gateway      *gateway.Client
	redirectBase string
}

func NewConnectionHandler(projects *services.ProjectService, gw *gateway.Client, redirectBase string) *ConnectionHandler {
	base := strings.TrimRight(strings.TrimSpace(redirectBase), "/")
	return &ConnectionHandler{projects: projects, gateway: gw, redirectBase: base}
}

// AuthURL handles GET /api/{provider}/auth-url?project_id=…
// The gateway is asked for the provider's authorisation URL; the caller's
// bearer token is forwarded. The response carries auth_url only when the
// gateway answered 2xx with a non-empty URL.
func (h *ConnectionHandler) AuthURL(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := strings.TrimSpace(c.Query("project_id"))
		if projectID == "" {
			response.Error(c, errors.NewBadRequest("project_id is required"))
			return
		}

		// Only project members may start a connection flow.
		if _, err := h.projects.Get(requestContext(c), currentUserID(c), projectID); err != nil {
			response.Error(c, err)
			return
		}

		authURL, err := h.gateway.AuthURL(requestContext(c), provider, projectID, bearerToken(c))
		if err != nil {
			response.Error(c, err)
			return
		}

		response.Success(c, http.StatusOK, gin.H{"auth_url": authURL})
	}
}

// Callback handles GET /api/{provider}/callback?code=…&state=…
// The provider redirects the browser here without our Authorization header,
// so the route is public. The code is forwarded to the gateway once; the
// outcome always ends in a 302 to the connect page.
func (h *ConnectionHandler) Callback(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := strings.TrimSpace(c.Query("code"))
		state := strings.TrimSpace(c.Query("state"))

		if errParam := strings.TrimSpace(c.Query("error")); errParam != "" {
			h.redirect(c, provider, false, "Authorization was denied")
			return
		}
		if code == "" {
			h.redirect(c, provider, false, "Missing authorization code")
			return
		}

		result, err := h.gateway.Complete(requestContext(c), provider, code, state, "")
		if err != nil {
			logger.WithModule("connections").Warn("gateway completion failed",
				zap.String("provider", provider),
				zap.Error(err),
			)
			h.redirect(c, provider, false, "Connection failed, please try again")
			return
		}

		if !result.Succeeded() {
			message := result.Message
			if message == "" {
				message = "Connection failed, please try again"
			}
			h.redirect(c, provider, false, message)
			return
		}

		if result.ProjectID != "" {
			if err := h.projects.SetConnected(requestContext(c), result.ProjectID, provider, true); err != nil {
				logger.WithModule("connections").Error("flag update failed",
					zap.String("provider", provider),
					zap.String("project_id", result.ProjectID),
					zap.Error(err),
				)
				h.redirect(c, provider, false, "Connection could not be saved")
				return
			}
		}

		message := result.Message
		if message == "" {
			message = "Connected successfully"
		}
		h.redirect(c, provider, true, message)
	}
}

func (h *ConnectionHandler) redirect(c *gin.Context, provider string, success bool, message string) {
	outcome := "error"
	if success {
		outcome = "success"
	}

	query := url.Values{}
	query.Set("connection", outcome)
	query.Set("message", message)
	query.Set("source", provider)

	c.Redirect(http.StatusFound, h.redirectBase+DefaultRedirectPath+"?"+query.Encode())
}
