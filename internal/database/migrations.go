package database

import (
	"gorm.io/gorm"

	"github.com/pulsehub/pulsehub/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Project{},
		&models.ProjectMember{},
		&models.ProjectInvitation{},
		&models.AuditLog{},
	); err != nil {
		return err
	}

	// A single pending invitation per (project, email). Accepted or declined
	// rows are history and do not block a re-invitation. MySQL lacks partial
	// indexes; the invitation service enforces the same rule before inserting.
	switch db.Dialector.Name() {
	case "sqlite", "postgres":
		return db.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_invitation
			 ON project_invitations (project_id, email)
			 WHERE status = 'pending'`,
		).Error
	default:
		return nil
	}
}
