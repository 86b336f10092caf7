// Package outbox persists and delivers planner events to Kafka.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"example.com/planner/internal/observability"
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

type schemaRegistrar interface {
	EnsureSchema(context.Context, string, string) (int, error)
}

// Message is an outbox row claimed for delivery.
type Message struct {
	EventID       int64           `db:"event_id"`
	TenantID      string          `db:"tenant_id"`
	AggregateType string          `db:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id"`
	EventType     string          `db:"event_type"`
	Topic         string          `db:"topic"`
	SchemaSubject string          `db:"schema_subject"`
	PartitionKey  string          `db:"partition_key"`
	Payload       json.RawMessage `db:"payload"`
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(logger zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithClaimLease sets how long a claimed batch is hidden from other dispatchers.
func WithClaimLease(lease time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if lease > 0 {
			d.claimLease = lease
		}
	}
}

// Dispatcher drains the outbox table into Kafka. Every record is framed with
// the schema id the registry assigned to its subject.
type Dispatcher struct {
	pool         *pgxpool.Pool
	producer     messageWriter
	registry     schemaRegistrar
	pollInterval time.Duration
	batchSize    int
	claimLease   time.Duration
	logger       zerolog.Logger

	mu        sync.Mutex
	schemaIDs map[string]int

	done chan struct{}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(pool *pgxpool.Pool, producer messageWriter, registry schemaRegistrar, pollInterval time.Duration, batchSize int, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		pool:         pool,
		producer:     producer,
		registry:     registry,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		claimLease:   time.Minute,
		logger:       zerolog.Nop(),
		schemaIDs:    make(map[string]int),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start drains the outbox every poll interval until ctx is cancelled. Run it
// in its own goroutine and call Wait after cancelling.
func (d *Dispatcher) Start(ctx context.Context) {
	defer close(d.done)
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	d.logger.Info().Dur("poll_interval", d.pollInterval).Int("batch_size", d.batchSize).Msg("outbox dispatcher started")
	for {
		if err := d.drainOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error().Err(err).Msg("outbox drain failed")
		}

		select {
		case <-ctx.Done():
			d.logger.Info().Msg("outbox dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until Start has returned.
func (d *Dispatcher) Wait() {
	<-d.done
}

// drainOnce claims one batch and either delivers it or parks it in the DLQ.
// Both paths mark the rows published so the outbox never redelivers them.
func (d *Dispatcher) drainOnce(ctx context.Context) error {
	start := time.Now()

	batch, err := d.claimBatch(ctx)
	if err != nil || len(batch) == 0 {
		return err
	}
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	if deliverErr := d.deliver(ctx, batch); deliverErr != nil {
		d.logger.Warn().Err(deliverErr).Int("messages", len(batch)).Msg("delivery failed, parking batch in dlq")
		for _, msg := range batch {
			if err := deadLetter(ctx, d.pool, msg, fmt.Sprintf("%s (topic=%s)", deliverErr, msg.Topic)); err != nil {
				return fmt.Errorf("dead-letter event %d: %w", msg.EventID, err)
			}
			deadLettered.WithLabelValues(msg.Topic).Inc()
		}
		return d.markPublished(ctx, batch)
	}

	for _, msg := range batch {
		publishedEvents.WithLabelValues(msg.Topic).Inc()
	}
	observability.RecordActivityPublished(time.Now())
	return d.markPublished(ctx, batch)
}

const claimQuery = `SELECT event_id, tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload
  FROM outbox
 WHERE published_at IS NULL
   AND (claimed_at IS NULL OR claimed_at < NOW() - $2::interval)
 ORDER BY event_id
 LIMIT $1
   FOR UPDATE SKIP LOCKED`

// claimBatch locks the oldest unpublished rows and stamps claimed_at so
// other replicas skip them until the lease runs out.
func (d *Dispatcher) claimBatch(ctx context.Context) ([]Message, error) {
	var batch []Message
	err := pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, claimQuery, d.batchSize, interval(d.claimLease))
		if err != nil {
			return err
		}
		batch, err = pgx.CollectRows(rows, pgx.RowToStructByName[Message])
		if err != nil || len(batch) == 0 {
			return err
		}

		ids := make([]int64, len(batch))
		for i, msg := range batch {
			ids[i] = msg.EventID
		}
		_, err = tx.Exec(ctx, `UPDATE outbox SET claimed_at = NOW() WHERE event_id = ANY($1)`, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// deliver writes the batch one topic at a time, topics in order of first appearance.
func (d *Dispatcher) deliver(ctx context.Context, batch []Message) error {
	var order []string
	byTopic := make(map[string][]kafka.Message)
	now := time.Now().UTC()

	for _, msg := range batch {
		schemaID, err := d.schemaID(ctx, msg)
		if err != nil {
			return err
		}
		if _, seen := byTopic[msg.Topic]; !seen {
			order = append(order, msg.Topic)
		}
		byTopic[msg.Topic] = append(byTopic[msg.Topic], buildRecord(msg, schemaID, now))
	}

	for _, topic := range order {
		records := byTopic[topic]
		if err := d.producer.WriteMessages(ctx, topic, records...); err != nil {
			return fmt.Errorf("write %d messages to %s: %w", len(records), topic, err)
		}
	}
	return nil
}

func (d *Dispatcher) schemaID(ctx context.Context, msg Message) (int, error) {
	meta, ok := schemaCatalog[msg.EventType]
	if !ok {
		return 0, fmt.Errorf("no schema metadata for event_type=%s", msg.EventType)
	}

	key := msg.SchemaSubject + "::" + meta.Schema
	d.mu.Lock()
	id, cached := d.schemaIDs[key]
	d.mu.Unlock()
	if cached {
		return id, nil
	}

	id, err := d.registry.EnsureSchema(ctx, msg.SchemaSubject, meta.Schema)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	d.schemaIDs[key] = id
	d.mu.Unlock()
	return id, nil
}

// markPublished stamps published_at, one transaction per tenant so each
// update runs under that tenant's row-level security scope.
func (d *Dispatcher) markPublished(ctx context.Context, batch []Message) error {
	byTenant := make(map[string][]int64)
	for _, msg := range batch {
		byTenant[msg.TenantID] = append(byTenant[msg.TenantID], msg.EventID)
	}

	for tenantID, ids := range byTenant {
		err := inTenantTx(ctx, d.pool, tenantID, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, `UPDATE outbox SET published_at = NOW() WHERE event_id = ANY($1)`, ids)
			return err
		})
		if err != nil {
			return fmt.Errorf("mark tenant %s published: %w", tenantID, err)
		}
	}
	return nil
}
