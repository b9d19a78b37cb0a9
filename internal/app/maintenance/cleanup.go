// Package maintenance runs background cleanup jobs on a cron schedule.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/pulsehub/pulsehub/internal/auth"
	"github.com/pulsehub/pulsehub/internal/services"
	"github.com/pulsehub/pulsehub/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultInvitationMaxAge   = 30 * 24 * time.Hour
	defaultSessionSpec        = "@hourly"
	defaultAuditSpec          = "@daily"
	defaultInvitationSpec     = "@daily"
)

// Cleaner coordinates background maintenance tasks: purging expired sessions,
// pruning stale audit logs, and expiring pending invitations nobody answered.
type Cleaner struct {
	sessions    *iauth.SessionService
	audit       *services.AuditService
	invitations *services.InvitationService
	cron        *cron.Cron
	log         *zap.Logger

	retentionDays    int
	invitationMaxAge time.Duration

	sessionSchedule    string
	auditSchedule      string
	invitationSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retentionDays = days
		}
	}
}

// WithInvitationMaxAge adjusts how long pending invitations survive unanswered.
func WithInvitationMaxAge(age time.Duration) Option {
	return func(cleaner *Cleaner) {
		if age > 0 {
			cleaner.invitationMaxAge = age
		}
	}
}

// WithSessionSchedule overrides the cron specification for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sessionSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithInvitationSchedule overrides the cron specification for invitation expiry.
func WithInvitationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.invitationSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(sessions *iauth.SessionService, audit *services.AuditService, invitations *services.InvitationService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions:           sessions,
		audit:              audit,
		invitations:        invitations,
		retentionDays:      defaultAuditRetentionDays,
		invitationMaxAge:   defaultInvitationMaxAge,
		sessionSchedule:    defaultSessionSpec,
		auditSchedule:      defaultAuditSpec,
		invitationSchedule: defaultInvitationSpec,
		log:                logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.sessions != nil {
		if _, err := c.cron.AddFunc(c.sessionSchedule, func() {
			if _, err := c.sessions.CleanupExpired(context.Background()); err != nil {
				c.log.Warn("session cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.audit != nil && c.retentionDays > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			retention := time.Duration(c.retentionDays) * 24 * time.Hour
			if _, err := c.audit.CleanupOlderThan(context.Background(), retention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.invitations != nil && c.invitationMaxAge > 0 {
		if _, err := c.cron.AddFunc(c.invitationSchedule, func() {
			if _, err := c.invitations.ExpireStale(context.Background(), c.invitationMaxAge); err != nil {
				c.log.Warn("invitation cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sessions != nil {
		if _, err := c.sessions.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.audit != nil && c.retentionDays > 0 {
		retention := time.Duration(c.retentionDays) * 24 * time.Hour
		if _, err := c.audit.CleanupOlderThan(ctx, retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.invitations != nil && c.invitationMaxAge > 0 {
		if _, err := c.invitations.ExpireStale(ctx, c.invitationMaxAge); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
