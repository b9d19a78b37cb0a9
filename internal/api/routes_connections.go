package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pulsehub/pulsehub/internal/gateway"
	"github.com/pulsehub/pulsehub/internal/handlers"
)

func registerConnectionRoutes(engine *gin.Engine, api *gin.RouterGroup, h *handlers.ConnectionHandler) {
	// Starting a flow requires the caller's bearer token.
	api.GET("/google-analytics/auth-url", h.AuthURL(gateway.ProviderGoogleAnalytics))
	api.GET("/stripe/auth-url", h.AuthURL(gateway.ProviderStripe))

	// Provider redirects arrive without our Authorization header.
	engine.GET("/api/google-analytics/callback", h.Callback(gateway.ProviderGoogleAnalytics))
	engine.GET("/api/stripe/callback", h.Callback(gateway.ProviderStripe))
}
