package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/go-redis/redis/v8"
)

// Generations tracks a per-tenant counter that is part of every view cache
// key. Bumping it orphans all previously cached views for the tenant.
type Generations interface {
	Current(ctx context.Context, tenantID string) (int64, error)
	Bump(ctx context.Context, tenantID string) (int64, error)
}

// MemoryGenerations keeps generations in process.
type MemoryGenerations struct {
	mu   sync.Mutex
	gens map[string]int64
}

// NewMemoryGenerations constructs MemoryGenerations.
func NewMemoryGenerations() *MemoryGenerations {
	return &MemoryGenerations{gens: make(map[string]int64)}
}

// Current returns the tenant's generation.
func (m *MemoryGenerations) Current(_ context.Context, tenantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[tenantID], nil
}

// Bump increments the tenant's generation.
func (m *MemoryGenerations) Bump(_ context.Context, tenantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gens[tenantID]++
	return m.gens[tenantID], nil
}

// RedisGenerations shares generations across processes through Redis.
type RedisGenerations struct {
	client *redis.Client
	prefix string
}

// NewRedisGenerations constructs RedisGenerations.
func NewRedisGenerations(client *redis.Client) *RedisGenerations {
	return &RedisGenerations{client: client, prefix: "planner:calgen:"}
}

// Current returns the tenant's generation, zero when it was never bumped.
func (r *RedisGenerations) Current(ctx context.Context, tenantID string) (int64, error) {
	gen, err := r.client.Get(ctx, r.prefix+tenantID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Bump increments the tenant's generation.
func (r *RedisGenerations) Bump(ctx context.Context, tenantID string) (int64, error) {
	return r.client.Incr(ctx, r.prefix+tenantID).Result()
}
