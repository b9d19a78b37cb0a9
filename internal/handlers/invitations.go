package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pulsehub/pulsehub/internal/services"
	"github.com/pulsehub/pulsehub/pkg/response"
)

// InvitationHandler exposes the collaborator invitation lifecycle.
type InvitationHandler struct {
	invitations *services.InvitationService
}

func NewInvitationHandler(invitations *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

type inviteRequest struct {
	Email string `json:"email" validate:"required"`
}

// POST /api/projects/:id/invitations
func (h *InvitationHandler) Invite(c *gin.Context) {
	var req inviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	invitation, err := h.invitations.Invite(requestContext(c), services.InviteInput{
		ProjectID: c.Param("id"),
		InviterID: currentUserID(c),
		Email:     req.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, invitation)
}

// GET /api/invitations
func (h *InvitationHandler) ListPending(c *gin.Context) {
	invitations, err := h.invitations.ListPending(requestContext(c), currentEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, invitations)
}

// POST /api/invitations/:id/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	invitation, err := h.invitations.Accept(requestContext(c), c.Param("id"), currentUserID(c), currentEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, invitation)
}

// POST /api/invitations/:id/decline
func (h *InvitationHandler) Decline(c *gin.Context) {
	invitation, err := h.invitations.Decline(requestContext(c), c.Param("id"), currentEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, invitation)
}
