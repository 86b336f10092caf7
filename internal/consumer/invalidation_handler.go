package consumer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"example.com/planner/internal/cache"
)

// InvalidationHandler drops cached calendar views for the tenant an event
// belongs to, so replicas that did not serve the write still refresh.
type InvalidationHandler struct {
	invalidator cache.Invalidator
	logger      zerolog.Logger
}

// NewInvalidationHandler constructs an InvalidationHandler.
func NewInvalidationHandler(invalidator cache.Invalidator, logger zerolog.Logger) *InvalidationHandler {
	return &InvalidationHandler{invalidator: invalidator, logger: logger}
}

// Handle invalidates msg's tenant. The tenant_id header wins; the payload
// envelope is the fallback for records produced without headers.
func (h *InvalidationHandler) Handle(ctx context.Context, msg Message) error {
	tenantID := msg.TenantID
	if tenantID == "" {
		env, err := msg.Envelope()
		if err != nil {
			recordInvalidation(msg.EventType, "error")
			return err
		}
		tenantID = env.TenantID
	}
	if tenantID == "" {
		recordInvalidation(msg.EventType, "skipped")
		h.logger.Warn().Str("event_type", msg.EventType).Int64("offset", msg.Offset).Msg("event has no tenant, nothing to invalidate")
		return nil
	}

	if err := h.invalidator.Invalidate(ctx, tenantID); err != nil {
		recordInvalidation(msg.EventType, "error")
		return fmt.Errorf("invalidate calendar views for tenant %s: %w", tenantID, err)
	}
	recordInvalidation(msg.EventType, "ok")
	h.logger.Debug().Str("event_type", msg.EventType).Str("tenant_id", tenantID).Msg("calendar views invalidated")
	return nil
}
