package consumer

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertEventLog = `INSERT INTO activity_event_log
    (event_type, tenant_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
VALUES (@event_type, @tenant_id, @schema_id, @schema_subject, @topic, @partition, @record_offset, @payload, @received_at)
ON CONFLICT (topic, partition, record_offset) DO NOTHING`

// EventLog records every consumed planner event in activity_event_log, the
// audit trail of a couple's calendar changes.
type EventLog struct {
	pool *pgxpool.Pool
}

// NewEventLog constructs an EventLog backed by pool.
func NewEventLog(pool *pgxpool.Pool) *EventLog {
	return &EventLog{pool: pool}
}

// Handle stores msg once. Redelivered records share a (topic, partition,
// offset) with the stored row and are ignored.
func (l *EventLog) Handle(ctx context.Context, msg Message) error {
	_, err := l.pool.Exec(ctx, insertEventLog, pgx.NamedArgs{
		"event_type":     msg.EventType,
		"tenant_id":      msg.TenantID,
		"schema_id":      msg.SchemaID,
		"schema_subject": msg.SchemaSubject,
		"topic":          msg.Topic,
		"partition":      msg.Partition,
		"record_offset":  msg.Offset,
		"payload":        msg.Payload,
		"received_at":    msg.Timestamp,
	})
	return err
}
