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
	"github.com/pulsehub/pulsehub/pkg/crypto"
	apperrors "github.com/pulsehub/pulsehub/pkg/errors"
	"github.com/pulsehub/pulsehub/pkg/metrics"
)

const (
	defaultMaxFailedAttempts = 5
	defaultLockoutDuration   = 15 * time.Minute
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrAccountLocked signals that too many failed logins temporarily locked the account.
	ErrAccountLocked = apperrors.New("ACCOUNT_LOCKED", "Account temporarily locked, try again later", http.StatusUnauthorized)
	// ErrAccountDisabled signals a deactivated account.
	ErrAccountDisabled = apperrors.New("ACCOUNT_DISABLED", "Account is disabled", http.StatusForbidden)
)

// RegisterInput describes the fields accepted when registering an account.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthenticateInput carries a login attempt.
type AuthenticateInput struct {
	Identifier string
	Password   string
	IPAddress  string
}

// UserOption customises UserService behaviour.
type UserOption func(*UserService)

// WithLockoutPolicy overrides the failed-attempt threshold and lock duration.
func WithLockoutPolicy(maxAttempts int, duration time.Duration) UserOption {
	return func(s *UserService) {
		if maxAttempts > 0 {
			s.maxFailed = maxAttempts
		}
		if duration > 0 {
			s.lockFor = duration
		}
	}
}

// WithUserClock injects a custom clock primarily for testing.
func WithUserClock(clock func() time.Time) UserOption {
	return func(s *UserService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// UserService manages account registration and credential verification.
type UserService struct {
	db        *gorm.DB
	audit     *AuditService
	maxFailed int
	lockFor   time.Duration
	now       func() time.Time
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, audit *AuditService, opts ...UserOption) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}

	service := &UserService{
		db:        db,
		audit:     audit,
		maxFailed: defaultMaxFailedAttempts,
		lockFor:   defaultLockoutDuration,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Register provisions a new account with a hashed password.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewBadRequest("Please enter a valid email address")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewBadRequest("password must be at least 8 characters")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  hashed,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		IsActive:  true,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrConflict.WithMessage("Username or email already in use")
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	s.auditEvent(ctx, &user.ID, user.Username, "user.register", "success", "")

	return user, nil
}

// Authenticate verifies credentials by username or email, enforcing the lockout policy.
func (s *UserService) Authenticate(ctx context.Context, input AuthenticateInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" || input.Password == "" {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find user: %w", err)
	}

	now := s.now()

	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrAccountDisabled
	}

	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrAccountLocked
	}

	if !crypto.VerifyPassword(user.Password, input.Password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		if failErr := s.recordFailedAttempt(ctx, &user, now); failErr != nil {
			return nil, failErr
		}
		s.auditEvent(ctx, &user.ID, user.Username, "user.login", "failure", input.IPAddress)
		return nil, apperrors.ErrInvalidCredentials
	}

	updates := map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
		"last_login_ip":   strings.TrimSpace(input.IPAddress),
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: record login: %w", err)
	}

	user.FailedAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	user.LastLoginIP = strings.TrimSpace(input.IPAddress)

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	s.auditEvent(ctx, &user.ID, user.Username, "user.login", "success", input.IPAddress)

	return &user, nil
}

// GetByID loads a user by primary key.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(id) == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}

	return &user, nil
}

func (s *UserService) recordFailedAttempt(ctx context.Context, user *models.User, now time.Time) error {
	attempts := user.FailedAttempts + 1
	updates := map[string]any{"failed_attempts": attempts}
	if attempts >= s.maxFailed {
		lockedUntil := now.Add(s.lockFor)
		updates["locked_until"] = lockedUntil
		updates["failed_attempts"] = 0
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("user service: record failed attempt: %w", err)
	}

	return nil
}

func (s *UserService) auditEvent(ctx context.Context, userID *string, username, action, result, ip string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Log(ctx, AuditEntry{
		UserID:    userID,
		Username:  username,
		Action:    action,
		Resource:  "user",
		Result:    result,
		IPAddress: ip,
	})
}
