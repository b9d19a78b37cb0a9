package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/pulsehub/pulsehub/internal/auth"
	"github.com/pulsehub/pulsehub/internal/middleware"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID extracts the authenticated user id injected by the auth middleware.
func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserIDKey)
}

// currentSessionID extracts the session id injected by the auth middleware.
func currentSessionID(c *gin.Context) string {
	return c.GetString(middleware.CtxSessionIDKey)
}

// currentEmail extracts the email claim when present.
func currentEmail(c *gin.Context) string {
	value, ok := c.Get(middleware.CtxClaimsKey)
	if !ok {
		return ""
	}
	claims, ok := value.(*iauth.Claims)
	if !ok || claims == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(claims.Email))
}

// bearerToken returns the raw bearer token from the Authorization header.
func bearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[7:])
}
