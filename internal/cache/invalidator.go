// Package cache holds built calendar views and invalidates them per tenant.
package cache

import "context"

// Invalidator defines a cache invalidation contract.
type Invalidator interface {
	Invalidate(ctx context.Context, tenantID string) error
}

// NoopInvalidator is a no-op implementation.
type NoopInvalidator struct{}

// Invalidate performs no action.
func (NoopInvalidator) Invalidate(context.Context, string) error { return nil }

// GenerationInvalidator invalidates by bumping the tenant generation that
// view cache keys embed. The consumer uses it with RedisGenerations to
// invalidate every API replica at once.
type GenerationInvalidator struct {
	Generations Generations
}

// Invalidate bumps the tenant's generation.
func (g GenerationInvalidator) Invalidate(ctx context.Context, tenantID string) error {
	_, err := g.Generations.Bump(ctx, tenantID)
	return err
}
