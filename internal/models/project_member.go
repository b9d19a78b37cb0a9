package models

import "time"

// ProjectMember joins users to the projects they belong to. A row is written
// when a project is created (owner) or when an invitation is accepted.
type ProjectMember struct {
	ProjectID string    `gorm:"primaryKey;type:uuid" json:"project_id"`
	UserID    string    `gorm:"primaryKey;type:uuid" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the join table shared with the Project.Members association.
func (ProjectMember) TableName() string {
	return "project_members"
}
