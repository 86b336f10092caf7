package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog"

	"example.com/planner/internal/domain"
)

// Config sizes the view cache.
type Config struct {
	MaxCost int64
	TTL     time.Duration
}

// Views caches calendar views in a ristretto cache. Keys embed the tenant's
// current generation, so invalidation is a single counter bump and stale
// entries age out through TTL and eviction.
type Views struct {
	client      *ristretto.Cache
	ttl         time.Duration
	generations Generations
	logger      zerolog.Logger
}

var (
	_ domain.ViewStore = (*Views)(nil)
	_ Invalidator      = (*Views)(nil)
)

// NewViews constructs a Views cache.
func NewViews(cfg Config, generations Generations, logger zerolog.Logger) (*Views, error) {
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = 1 << 20
	}
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxCost * 10,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	if generations == nil {
		generations = NewMemoryGenerations()
	}

	logger.Info().
		Int64("max_cost", cfg.MaxCost).
		Dur("ttl", cfg.TTL).
		Msg("calendar view cache initialized")

	return &Views{client: client, ttl: cfg.TTL, generations: generations, logger: logger}, nil
}

func (v *Views) key(ctx context.Context, tenantID, key string) (string, bool) {
	gen, err := v.generations.Current(ctx, tenantID)
	if err != nil {
		v.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("view cache generation lookup failed")
		return "", false
	}
	return tenantID + ":" + strconv.FormatInt(gen, 10) + ":" + key, true
}

// Get returns the cached view for key together with the slot a freshly
// built view must be stored under. The slot pins the generation read here,
// so a view built across a concurrent write lands in an orphaned slot. A
// failing generation source is a miss with no slot.
func (v *Views) Get(ctx context.Context, tenantID, key string) (any, domain.ViewSlot, bool) {
	full, ok := v.key(ctx, tenantID, key)
	if !ok {
		recordLookup(false)
		return nil, "", false
	}
	value, found := v.client.Get(full)
	recordLookup(found)
	return value, domain.ViewSlot(full), found
}

// Set stores value in slot. The empty slot is never stored.
func (v *Views) Set(slot domain.ViewSlot, value any, cost int64) bool {
	if slot == "" {
		return false
	}
	if v.ttl > 0 {
		return v.client.SetWithTTL(string(slot), value, cost, v.ttl)
	}
	return v.client.Set(string(slot), value, cost)
}

// Invalidate orphans every cached view of the tenant.
func (v *Views) Invalidate(ctx context.Context, tenantID string) error {
	_, err := v.generations.Bump(ctx, tenantID)
	recordInvalidation(err)
	return err
}

// Wait blocks until buffered writes are applied.
func (v *Views) Wait() {
	v.client.Wait()
}

// Close releases the cache.
func (v *Views) Close() {
	v.client.Close()
}
