package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pulsehub/pulsehub/internal/gateway"
	"github.com/pulsehub/pulsehub/internal/models"
	apperrors "github.com/pulsehub/pulsehub/pkg/errors"
)

var (
	// ErrProjectNotFound indicates the requested project does not exist.
	ErrProjectNotFound = apperrors.New("PROJECT_NOT_FOUND", "Project not found", http.StatusNotFound)
	// ErrNotProjectMember is returned when a caller is not a member of the project.
	ErrNotProjectMember = apperrors.New("NOT_PROJECT_MEMBER", "You are not a member of this project", http.StatusForbidden)
	// ErrNotProjectOwner is returned for owner-only operations.
	ErrNotProjectOwner = apperrors.New("NOT_PROJECT_OWNER", "Only the project owner can perform this operation", http.StatusForbidden)
)

// CreateProjectInput describes the fields accepted when creating a project.
type CreateProjectInput struct {
	Name     string
	Settings datatypes.JSON
}

// UpdateProjectInput enumerates mutable project attributes.
type UpdateProjectInput struct {
	Name     *string
	Settings datatypes.JSON
}

// ConnectionState reports which external providers a project is connected to.
type ConnectionState struct {
	GoogleAnalytics bool `json:"google_analytics"`
	Stripe          bool `json:"stripe"`
}

// ProjectService manages project lifecycle and membership-scoped reads.
type ProjectService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewProjectService constructs a ProjectService instance.
func NewProjectService(db *gorm.DB, audit *AuditService) (*ProjectService, error) {
	if db == nil {
		return nil, errors.New("project service: db is required")
	}
	return &ProjectService{db: db, audit: audit}, nil
}

// Create provisions a project and enrols the owner as its first member in one transaction.
func (s *ProjectService) Create(ctx context.Context, ownerID string, input CreateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("project name is required")
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.ErrUnauthorized
	}

	project := &models.Project{
		Name:     name,
		OwnerID:  ownerID,
		Settings: input.Settings,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		member := models.ProjectMember{ProjectID: project.ID, UserID: ownerID}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, fmt.Errorf("project service: create project: %w", err)
	}

	if s.audit != nil {
		_ = s.audit.Log(ctx, AuditEntry{
			UserID:   &ownerID,
			Action:   "project.create",
			Resource: project.ID,
			Result:   "success",
			Metadata: map[string]any{"project_name": name},
		})
	}

	return project, nil
}

// List returns every project the user is a member of, newest first.
func (s *ProjectService) List(ctx context.Context, userID string) ([]models.Project, error) {
	ctx = ensureContext(ctx)

	var projects []models.Project
	err := s.db.WithContext(ctx).
		Joins("JOIN project_members pm ON pm.project_id = projects.id").
		Where("pm.user_id = ?", userID).
		Order("projects.created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("project service: list projects: %w", err)
	}

	return projects, nil
}

// Get loads a single project, requiring the caller to be a member.
func (s *ProjectService) Get(ctx context.Context, userID, projectID string) (*models.Project, error) {
	ctx = ensureContext(ctx)

	project, err := s.find(ctx, projectID)
	if err != nil {
		return nil, err
	}

	member, err := s.IsMember(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotProjectMember
	}

	return project, nil
}

// Update applies owner-only mutations to a project.
func (s *ProjectService) Update(ctx context.Context, userID, projectID string, input UpdateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	project, err := s.find(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if project.OwnerID != userID {
		return nil, ErrNotProjectOwner
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("project name is required")
		}
		updates["project_name"] = name
		project.Name = name
	}
	if input.Settings != nil {
		updates["settings"] = input.Settings
		project.Settings = input.Settings
	}

	if len(updates) == 0 {
		return project, nil
	}

	if err := s.db.WithContext(ctx).Model(project).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("project service: update project: %w", err)
	}

	return project, nil
}

// GetConnections reads the provider connection flags for a project the caller belongs to.
// Failures surface as errors; no partial or fabricated state is returned.
func (s *ProjectService) GetConnections(ctx context.Context, userID, projectID string) (ConnectionState, error) {
	project, err := s.Get(ctx, userID, projectID)
	if err != nil {
		return ConnectionState{}, err
	}

	return ConnectionState{
		GoogleAnalytics: project.GoogleAnalytics,
		Stripe:          project.Stripe,
	}, nil
}

// SetConnected flips a provider connection flag after a completed OAuth exchange.
func (s *ProjectService) SetConnected(ctx context.Context, projectID, provider string, connected bool) error {
	ctx = ensureContext(ctx)

	var column string
	switch provider {
	case gateway.ProviderGoogleAnalytics:
		column = "google_analytics"
	case gateway.ProviderStripe:
		column = "stripe"
	default:
		return apperrors.NewBadRequest("unknown provider")
	}

	result := s.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", projectID).
		Update(column, connected)
	if result.Error != nil {
		return fmt.Errorf("project service: set connected: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}

	return nil
}

// IsMember reports whether a user belongs to the project.
func (s *ProjectService) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	ctx = ensureContext(ctx)

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("project service: membership check: %w", err)
	}

	return count > 0, nil
}

func (s *ProjectService) find(ctx context.Context, projectID string) (*models.Project, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, ErrProjectNotFound
	}

	var project models.Project
	err := s.db.WithContext(ctx).Where("id = ?", projectID).Take(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: find project: %w", err)
	}

	return &project, nil
}
