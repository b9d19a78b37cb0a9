package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pulsehub/pulsehub/internal/models"
	apperrors "github.com/pulsehub/pulsehub/pkg/errors"
	"github.com/pulsehub/pulsehub/pkg/mail"
	"github.com/pulsehub/pulsehub/pkg/metrics"
)

var (
	// ErrInvitationNotFound indicates no invitation matches the identifier.
	ErrInvitationNotFound = apperrors.New("INVITATION_NOT_FOUND", "Invitation not found", http.StatusNotFound)
	// ErrInvitationResolved signals the invitation was already accepted or declined.
	ErrInvitationResolved = apperrors.New("INVITATION_RESOLVED", "Invitation has already been answered", http.StatusConflict)
	// ErrInvitationNotAddressee is returned when the caller's email does not match the invitation.
	ErrInvitationNotAddressee = apperrors.New("INVITATION_FORBIDDEN", "Invitation is addressed to a different email", http.StatusForbidden)
	// ErrDuplicateInvitation signals a pending invitation already exists for the email.
	ErrDuplicateInvitation = apperrors.New("INVITATION_DUPLICATE", "An invitation for this email is already pending", http.StatusConflict)

	errInvalidEmail = apperrors.NewBadRequest("Please enter a valid email address")
)

// InviteInput describes a new collaborator invitation.
type InviteInput struct {
	ProjectID string
	InviterID string
	Email     string
}

// InvitationOption customises InvitationService behaviour.
type InvitationOption func(*InvitationService)

// WithInvitationClock injects a custom clock primarily for testing.
func WithInvitationClock(clock func() time.Time) InvitationOption {
	return func(s *InvitationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// InvitationService manages the collaborator invitation lifecycle.
type InvitationService struct {
	db     *gorm.DB
	audit  *AuditService
	mailer mail.Mailer
	now    func() time.Time
}

// NewInvitationService constructs an InvitationService with the provided dependencies.
func NewInvitationService(db *gorm.DB, audit *AuditService, mailer mail.Mailer, opts ...InvitationOption) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}

	service := &InvitationService{
		db:     db,
		audit:  audit,
		mailer: mailer,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Invite creates a pending invitation for the given email address. Invalid
// addresses never reach the database, and at most one pending invitation may
// exist per (project, email) pair.
func (s *InvitationService) Invite(ctx context.Context, input InviteInput) (*models.ProjectInvitation, error) {
	ctx = ensureContext(ctx)

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errInvalidEmail
	}

	var project models.Project
	err := s.db.WithContext(ctx).Where("id = ?", input.ProjectID).Take(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: find project: %w", err)
	}

	var memberCount int64
	err = s.db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", input.ProjectID, input.InviterID).
		Count(&memberCount).Error
	if err != nil {
		return nil, fmt.Errorf("invitation service: membership check: %w", err)
	}
	if memberCount == 0 {
		return nil, ErrNotProjectMember
	}

	// The partial unique index enforces this on sqlite/postgres; this check
	// gives a clean error and covers MySQL, which lacks partial indexes.
	var pendingCount int64
	err = s.db.WithContext(ctx).
		Model(&models.ProjectInvitation{}).
		Where("project_id = ? AND email = ? AND status = ?", input.ProjectID, email, models.InvitationPending).
		Count(&pendingCount).Error
	if err != nil {
		return nil, fmt.Errorf("invitation service: duplicate check: %w", err)
	}
	if pendingCount > 0 {
		return nil, ErrDuplicateInvitation
	}

	invitation := &models.ProjectInvitation{
		ProjectID: input.ProjectID,
		InvitedBy: input.InviterID,
		Email:     email,
		Status:    models.InvitationPending,
	}

	if err := s.db.WithContext(ctx).Create(invitation).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrDuplicateInvitation
		}
		return nil, fmt.Errorf("invitation service: create invitation: %w", err)
	}

	metrics.InvitationEvents.WithLabelValues("created").Inc()

	if s.mailer != nil {
		message := mail.Message{
			To:      []string{email},
			Subject: fmt.Sprintf("You've been invited to %s on PulseHub", project.Name),
			Body: fmt.Sprintf(
				"You have been invited to collaborate on the project %q.\r\n\r\n"+
					"Sign in to PulseHub with this email address to accept or decline the invitation.\r\n",
				project.Name),
		}
		if mailErr := s.mailer.Send(ctx, message); mailErr != nil && !errors.Is(mailErr, mail.ErrSMTPDisabled) {
			return nil, fmt.Errorf("invitation service: send email: %w", mailErr)
		}
	}

	if s.audit != nil {
		_ = s.audit.Log(ctx, AuditEntry{
			UserID:   &invitation.InvitedBy,
			Action:   "invitation.create",
			Resource: invitation.ID,
			Result:   "success",
			Metadata: map[string]any{"project_id": input.ProjectID, "email": email},
		})
	}

	return invitation, nil
}

// ListPending returns the pending invitations addressed to an email, with the
// project preloaded so callers can show the project name.
func (s *InvitationService) ListPending(ctx context.Context, email string) ([]models.ProjectInvitation, error) {
	ctx = ensureContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errInvalidEmail
	}

	var invitations []models.ProjectInvitation
	err := s.db.WithContext(ctx).
		Preload("Project").
		Where("email = ? AND status = ?", email, models.InvitationPending).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("invitation service: list pending: %w", err)
	}

	return invitations, nil
}

// Accept adds the caller to the project and marks the invitation accepted.
// Both writes happen in one transaction; either they both commit or neither does.
func (s *InvitationService) Accept(ctx context.Context, invitationID, userID, userEmail string) (*models.ProjectInvitation, error) {
	ctx = ensureContext(ctx)

	invitation, err := s.findAddressed(ctx, invitationID, userEmail)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member := models.ProjectMember{ProjectID: invitation.ProjectID, UserID: userID}
		if err := tx.Create(&member).Error; err != nil && !isUniqueConstraintError(err) {
			return err
		}

		result := tx.Model(&models.ProjectInvitation{}).
			Where("id = ? AND status = ?", invitation.ID, models.InvitationPending).
			Update("status", models.InvitationAccepted)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvitationResolved
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fmt.Errorf("invitation service: accept: %w", err)
	}

	invitation.Status = models.InvitationAccepted
	metrics.InvitationEvents.WithLabelValues("accepted").Inc()

	if s.audit != nil {
		_ = s.audit.Log(ctx, AuditEntry{
			UserID:   &userID,
			Action:   "invitation.accept",
			Resource: invitation.ID,
			Result:   "success",
			Metadata: map[string]any{"project_id": invitation.ProjectID},
		})
	}

	return invitation, nil
}

// Decline marks a pending invitation as declined without touching membership.
func (s *InvitationService) Decline(ctx context.Context, invitationID, userEmail string) (*models.ProjectInvitation, error) {
	ctx = ensureContext(ctx)

	invitation, err := s.findAddressed(ctx, invitationID, userEmail)
	if err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).
		Model(&models.ProjectInvitation{}).
		Where("id = ? AND status = ?", invitation.ID, models.InvitationPending).
		Update("status", models.InvitationDeclined)
	if result.Error != nil {
		return nil, fmt.Errorf("invitation service: decline: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrInvitationResolved
	}

	invitation.Status = models.InvitationDeclined
	metrics.InvitationEvents.WithLabelValues("declined").Inc()

	return invitation, nil
}

// ExpireStale removes pending invitations older than the given window.
// Accepted and declined invitations are history and are never touched.
func (s *InvitationService) ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	ctx = ensureContext(ctx)

	if olderThan <= 0 {
		return 0, nil
	}

	cutoff := s.now().Add(-olderThan)
	result := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.InvitationPending, cutoff).
		Delete(&models.ProjectInvitation{})
	if result.Error != nil {
		return 0, fmt.Errorf("invitation service: expire stale: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (s *InvitationService) findAddressed(ctx context.Context, invitationID, userEmail string) (*models.ProjectInvitation, error) {
	if strings.TrimSpace(invitationID) == "" {
		return nil, ErrInvitationNotFound
	}

	var invitation models.ProjectInvitation
	err := s.db.WithContext(ctx).Where("id = ?", invitationID).Take(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: find invitation: %w", err)
	}

	if !strings.EqualFold(invitation.Email, strings.TrimSpace(userEmail)) {
		return nil, ErrInvitationNotAddressee
	}

	if invitation.Status != models.InvitationPending {
		return nil, ErrInvitationResolved
	}

	return &invitation, nil
}
