package models

// Invitation status values. A pending invitation transitions to accepted or
// declined exactly once and never reverses.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// ProjectInvitation represents a pending membership offer addressed to an
// email rather than a user id, so users can be invited before they sign up.
type ProjectInvitation struct {
	BaseModel

	ProjectID string   `gorm:"type:uuid;not null;index" json:"project_id"`
	Project   *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	InvitedBy string `gorm:"type:uuid;not null" json:"invited_by"`
	Email     string `gorm:"not null;index" json:"email"`
	Status    string `gorm:"not null;default:pending;index" json:"status"`
}
