package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pulsehub/pulsehub/internal/handlers"
)

func registerAuthRoutes(engine *gin.Engine, api *gin.RouterGroup, h *handlers.AuthHandler) {
	auth := engine.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
	}

	api.GET("/auth/me", h.Me)
	api.POST("/auth/logout", h.Logout)
}
