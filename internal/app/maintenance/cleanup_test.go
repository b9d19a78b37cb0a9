package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/pulsehub/pulsehub/internal/auth"
	"github.com/pulsehub/pulsehub/internal/database/testutil"
	"github.com/pulsehub/pulsehub/internal/models"
	"github.com/pulsehub/pulsehub/internal/services"
	"github.com/pulsehub/pulsehub/pkg/crypto"
)

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)

	invitationSvc, err := services.NewInvitationService(db, nil, nil)
	require.NoError(t, err)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "cleanup-secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{
		RefreshTokenTTL: time.Hour,
		RefreshLength:   16,
	})
	require.NoError(t, err)

	user := seedUser(t, db, "cleanup-user")

	_, expiredSession, err := sessionSvc.CreateSession(user, iauth.SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Session{}).Where("id = ?", expiredSession.ID).
		Update("expires_at", time.Now().Add(-2*time.Hour)).Error)

	_, activeSession, err := sessionSvc.CreateSession(user, iauth.SessionMetadata{})
	require.NoError(t, err)

	// Audit log older than the retention window.
	require.NoError(t, auditSvc.Log(context.Background(), services.AuditEntry{
		Action:   "test.action",
		Result:   "success",
		Username: "tester",
	}))
	var auditLog models.AuditLog
	require.NoError(t, db.First(&auditLog).Error)
	require.NoError(t, db.Model(&auditLog).Update("created_at", time.Now().AddDate(0, 0, -10)).Error)

	// Pending invitation nobody answered for weeks.
	project := &models.Project{Name: "Shop", OwnerID: user.ID}
	require.NoError(t, db.Create(project).Error)
	stale := &models.ProjectInvitation{
		ProjectID: project.ID,
		InvitedBy: user.ID,
		Email:     "stale@example.com",
		Status:    models.InvitationPending,
	}
	require.NoError(t, db.Create(stale).Error)
	require.NoError(t, db.Model(stale).Update("created_at", time.Now().AddDate(0, 0, -40)).Error)

	c := NewCleaner(sessionSvc, auditSvc, invitationSvc,
		WithAuditRetentionDays(7),
		WithInvitationMaxAge(30*24*time.Hour),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)

	require.NoError(t, c.RunOnce(context.Background()))

	var gone models.Session
	require.ErrorIs(t, db.First(&gone, "id = ?", expiredSession.ID).Error, gorm.ErrRecordNotFound)

	var remaining models.Session
	require.NoError(t, db.First(&remaining, "id = ?", activeSession.ID).Error)

	var auditCount int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&auditCount).Error)
	require.Zero(t, auditCount)

	var invitationCount int64
	require.NoError(t, db.Model(&models.ProjectInvitation{}).Count(&invitationCount).Error)
	require.Zero(t, invitationCount)
}

func TestCleanerStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)

	c := NewCleaner(nil, auditSvc, nil,
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
		WithAuditSchedule("@every 1h"),
	)

	require.NoError(t, c.Start())
	<-c.Stop().Done()
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := crypto.HashPassword("password123")
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hash,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
