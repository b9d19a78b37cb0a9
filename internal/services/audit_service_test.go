package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulsehub/pulsehub/internal/models"
)

func TestAuditServiceLogAndList(t *testing.T) {
	db := openTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	user := seedUser(t, db, "alice")

	require.NoError(t, svc.Log(context.Background(), AuditEntry{
		UserID:   &user.ID,
		Username: user.Username,
		Action:   "project.create",
		Resource: "project-1",
		Result:   "success",
		Metadata: map[string]any{"project_name": "Shop"},
	}))
	require.NoError(t, svc.Log(context.Background(), AuditEntry{
		Action: "user.login",
		Result: "failure",
	}))

	logs, total, err := svc.List(context.Background(), AuditListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, logs, 2)

	filtered, total, err := svc.List(context.Background(), AuditListOptions{
		Filters: AuditFilters{Action: "project.create"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "project-1", filtered[0].Resource)
	require.Contains(t, filtered[0].Metadata, "Shop")
}

func TestAuditServiceRequiresActionAndResult(t *testing.T) {
	db := openTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: "success"}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "user.login"}))
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	db := openTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	old := models.AuditLog{Action: "user.login", Result: "success"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&old).Update("created_at", time.Now().Add(-48*time.Hour)).Error)

	recent := models.AuditLog{Action: "user.login", Result: "success"}
	require.NoError(t, db.Create(&recent).Error)

	removed, err := svc.CleanupOlderThan(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	require.EqualValues(t, 1, countRows(t, db, &models.AuditLog{}, "1 = 1"))
}
