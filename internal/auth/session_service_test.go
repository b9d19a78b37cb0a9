package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pulsehub/pulsehub/internal/database/testutil"
	"github.com/pulsehub/pulsehub/internal/models"
	"github.com/pulsehub/pulsehub/pkg/crypto"
)

func newTestSessionService(t *testing.T, cfg SessionConfig) (*SessionService, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	jwtService, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "pulsehub"})
	require.NoError(t, err)

	svc, err := NewSessionService(db, jwtService, cfg)
	require.NoError(t, err)

	return svc, db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := crypto.HashPassword("password123")
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hash,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestSessionServiceCreateAndRefresh(t *testing.T) {
	svc, db := newTestSessionService(t, SessionConfig{})
	user := createTestUser(t, db, "alice")

	pair, session, err := svc.CreateSession(user, SessionMetadata{IPAddress: "10.0.0.1", UserAgent: "test-agent"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, user.ID, session.UserID)
	require.Equal(t, "10.0.0.1", session.IPAddress)

	rotated, refreshed, err := svc.RefreshSession(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, session.ID, refreshed.ID)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The old token must no longer resolve after rotation.
	_, _, err = svc.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionServiceRefreshRejectsRevoked(t *testing.T) {
	svc, db := newTestSessionService(t, SessionConfig{})
	user := createTestUser(t, db, "bob")

	pair, session, err := svc.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSession(session.ID))

	_, _, err = svc.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionRevoked)

	// Revoking twice reports not found because the guarded update matches nothing.
	require.ErrorIs(t, svc.RevokeSession(session.ID), ErrSessionNotFound)
}

func TestSessionServiceRefreshRejectsExpired(t *testing.T) {
	current := time.Now()
	svc, db := newTestSessionService(t, SessionConfig{
		RefreshTokenTTL: time.Minute,
		Clock:           func() time.Time { return current },
	})
	user := createTestUser(t, db, "carol")

	pair, _, err := svc.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, _, err = svc.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestSessionServiceCleanupExpired(t *testing.T) {
	current := time.Now()
	svc, db := newTestSessionService(t, SessionConfig{
		RefreshTokenTTL: time.Minute,
		Clock:           func() time.Time { return current },
	})
	user := createTestUser(t, db, "dave")

	_, expired, err := svc.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, live, err := svc.CreateSession(user, SessionMetadata{})
	require.NoError(t, err)

	removed, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var remaining []models.Session
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, live.ID, remaining[0].ID)
	require.NotEqual(t, expired.ID, remaining[0].ID)
}
