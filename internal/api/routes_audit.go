package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pulsehub/pulsehub/internal/handlers"
)

func registerAuditRoutes(api *gin.RouterGroup, h *handlers.AuditHandler) {
	api.GET("/audit", h.List)
}
