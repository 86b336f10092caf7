package outbox

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertDeadLetter = `INSERT INTO outbox_dlq
    (tenant_id, event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, next_retry_at)
VALUES (@tenant_id, @event_id, @event_type, @topic, @payload, @reason, @aggregate_type, @aggregate_id, @schema_subject, @partition_key, NOW())`

// deadLetter parks msg in outbox_dlq with the delivery failure. The entry is
// due for replay on the next DLQ pass.
func deadLetter(ctx context.Context, pool *pgxpool.Pool, msg Message, reason string) error {
	return inTenantTx(ctx, pool, msg.TenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertDeadLetter, pgx.NamedArgs{
			"tenant_id":      msg.TenantID,
			"event_id":       msg.EventID,
			"event_type":     msg.EventType,
			"topic":          msg.Topic,
			"payload":        msg.Payload,
			"reason":         reason,
			"aggregate_type": msg.AggregateType,
			"aggregate_id":   msg.AggregateID,
			"schema_subject": msg.SchemaSubject,
			"partition_key":  msg.PartitionKey,
		})
		return err
	})
}
