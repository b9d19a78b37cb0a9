package handlers

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/pulsehub/pulsehub/internal/auth"
	"github.com/pulsehub/pulsehub/internal/database/testutil"
	"github.com/pulsehub/pulsehub/internal/middleware"
	"github.com/pulsehub/pulsehub/internal/models"
	"github.com/pulsehub/pulsehub/pkg/crypto"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
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

func seedProject(t *testing.T, db *gorm.DB, owner *models.User, name string) *models.Project {
	t.Helper()

	project := &models.Project{Name: name, OwnerID: owner.ID}
	require.NoError(t, db.Create(project).Error)
	require.NoError(t, db.Create(&models.ProjectMember{ProjectID: project.ID, UserID: owner.ID}).Error)
	return project
}

// identityStub injects the auth context the middleware would normally set.
func identityStub(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserIDKey, user.ID)
		c.Set(middleware.CtxClaimsKey, &iauth.Claims{UserID: user.ID, Email: user.Email})
		c.Next()
	}
}
