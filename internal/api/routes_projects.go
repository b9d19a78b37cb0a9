package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pulsehub/pulsehub/internal/handlers"
)

func registerProjectRoutes(api *gin.RouterGroup, h *handlers.ProjectHandler) {
	projects := api.Group("/projects")
	{
		projects.POST("", h.Create)
		projects.GET("", h.List)
		projects.GET("/:id", h.Get)
		projects.PATCH("/:id", h.Update)
		projects.GET("/:id/connections", h.Connections)
	}
}
