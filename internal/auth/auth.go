// Package auth applies the shared bearer-token library to the planner API:
// which paths are public and which scopes read or change a couple's calendar.
package auth

import (
	"context"
	"net/http"

	authlib "example.com/planner/pkg/platform/auth"
)

// Claims are the verified token claims of the calling partner.
type Claims = authlib.Claims

// Config configures token verification.
type Config = authlib.Config

// OAuth scopes accepted by the planner API. Write implies read.
const (
	ScopePlannerRead  = "planner:read"
	ScopePlannerWrite = "planner:write"
)

// PublicPaths answer without a bearer token.
var PublicPaths = []string{"/healthz", "/metrics"}

// NewMiddleware returns bearer-token middleware for the planner API. Failures
// are rendered by onError.
func NewMiddleware(cfg Config, onError authlib.ErrorWriter) func(http.Handler) http.Handler {
	return authlib.Middleware(cfg, authlib.SkipPaths(PublicPaths...), authlib.OnError(onError))
}

// FromContext returns the caller's claims.
func FromContext(ctx context.Context) (*Claims, bool) {
	return authlib.FromContext(ctx)
}

// CanRead reports whether claims allow reading the couple's calendar.
func CanRead(c *Claims) bool {
	return c.HasAnyScope(ScopePlannerRead, ScopePlannerWrite)
}

// CanWrite reports whether claims allow changing the couple's calendar.
func CanWrite(c *Claims) bool {
	return c.HasScope(ScopePlannerWrite)
}
