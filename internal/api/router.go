// Package api builds the HTTP router and wires handlers to routes.
package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pulsehub/pulsehub/internal/app"
	iauth "github.com/pulsehub/pulsehub/internal/auth"
	"github.com/pulsehub/pulsehub/internal/gateway"
	"github.com/pulsehub/pulsehub/internal/handlers"
	"github.com/pulsehub/pulsehub/internal/middleware"
	"github.com/pulsehub/pulsehub/internal/services"
	"github.com/pulsehub/pulsehub/pkg/logger"
	"github.com/pulsehub/pulsehub/pkg/mail"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, cfg *app.Config, jwt *iauth.JWTService, sessions *iauth.SessionService) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))

	r.NoRoute(middleware.NotFoundHandler)

	// Services
	auditService, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}

	userService, err := services.NewUserService(db, auditService, cfg.Auth.LockoutOptions()...)
	if err != nil {
		return nil, err
	}

	projectService, err := services.NewProjectService(db, auditService)
	if err != nil {
		return nil, err
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, err
	}

	invitationService, err := services.NewInvitationService(db, auditService, mailer)
	if err != nil {
		return nil, err
	}

	requireAuth := middleware.Auth(jwt)
	api := r.Group("/api")
	api.Use(requireAuth)

	registerHealthRoutes(r, db)
	registerMonitoringRoutes(r, cfg)
	registerAuthRoutes(r, api, handlers.NewAuthHandler(userService, sessions))
	registerProjectRoutes(api, handlers.NewProjectHandler(projectService))
	registerInvitationRoutes(api, handlers.NewInvitationHandler(invitationService))
	registerAuditRoutes(api, handlers.NewAuditHandler(auditService))

	if cfg.Gateway.BaseURL != "" {
		client, err := gateway.NewClient(cfg.Gateway.GatewayClientConfig())
		if err != nil {
			return nil, err
		}
		connectionHandler := handlers.NewConnectionHandler(projectService, client, cfg.Server.WebOrigin)
		registerConnectionRoutes(r, api, connectionHandler)
	} else {
		logger.WithModule("api").Warn("gateway base url not configured, connection routes disabled")
	}

	return r, nil
}
