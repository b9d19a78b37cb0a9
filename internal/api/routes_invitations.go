package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pulsehub/pulsehub/internal/handlers"
)

func registerInvitationRoutes(api *gin.RouterGroup, h *handlers.InvitationHandler) {
	api.POST("/projects/:id/invitations", h.Invite)

	invitations := api.Group("/invitations")
	{
		invitations.GET("", h.ListPending)
		invitations.POST("/:id/accept", h.Accept)
		invitations.POST("/:id/decline", h.Decline)
	}
}
