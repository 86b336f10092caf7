package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const maxBackoff = time.Hour

// DLQManager replays parked planner events into the outbox. Entries that keep
// failing back off exponentially and are quarantined once retries run out.
type DLQManager struct {
	pool       *pgxpool.Pool
	maxRetries int
	baseDelay  time.Duration
	logger     zerolog.Logger
}

// NewDLQManager constructs a DLQManager. Non-positive settings fall back to
// five retries and a one minute base delay.
func NewDLQManager(pool *pgxpool.Pool, maxRetries int, baseDelay time.Duration, logger zerolog.Logger) *DLQManager {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}
	return &DLQManager{pool: pool, maxRetries: maxRetries, baseDelay: baseDelay, logger: logger}
}

// Run calls RunOnce every interval until ctx is cancelled.
func (m *DLQManager) Run(ctx context.Context, every time.Duration, batchSize int) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	m.logger.Info().Dur("interval", every).Int("max_retries", m.maxRetries).Msg("dlq manager started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("dlq manager stopped")
			return
		case <-ticker.C:
		}

		handled, err := m.RunOnce(ctx, batchSize)
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			m.logger.Error().Err(err).Int("handled", handled).Msg("dlq pass failed")
		case handled > 0:
			m.logger.Info().Int("handled", handled).Msg("dlq pass complete")
		}
	}
}

// dlqEntry is an outbox_dlq row due for replay.
type dlqEntry struct {
	ID            int64  `db:"dlq_id"`
	TenantID      string `db:"tenant_id"`
	EventID       int64  `db:"event_id"`
	EventType     string `db:"event_type"`
	Topic         string `db:"topic"`
	Payload       []byte `db:"payload"`
	Reason        string `db:"reason"`
	AggregateType string `db:"aggregate_type"`
	AggregateID   string `db:"aggregate_id"`
	SchemaSubject string `db:"schema_subject"`
	PartitionKey  string `db:"partition_key"`
	RetryCount    int    `db:"retry_count"`
}

const dueEntriesQuery = `SELECT dlq_id, tenant_id, event_id, event_type, topic, payload, reason,
       aggregate_type, aggregate_id, schema_subject, partition_key, retry_count
  FROM outbox_dlq
 WHERE quarantined_at IS NULL AND (next_retry_at IS NULL OR next_retry_at <= NOW())
 ORDER BY created_at
 LIMIT $1`

// RunOnce handles up to batchSize due entries and returns how many reached an
// outcome. Per-entry failures are joined into the returned error.
func (m *DLQManager) RunOnce(ctx context.Context, batchSize int) (int, error) {
	rows, err := m.pool.Query(ctx, dueEntriesQuery, batchSize)
	if err != nil {
		return 0, err
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[dlqEntry])
	if err != nil {
		return 0, fmt.Errorf("scan dlq entries: %w", err)
	}

	var errs []error
	handled := 0
	for _, entry := range entries {
		outcome, err := m.handle(ctx, entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("dlq entry %d: %w", entry.ID, err))
			continue
		}
		dlqOutcomes.WithLabelValues(outcome, entry.EventType).Inc()
		handled++
	}

	m.refreshBacklog(ctx)
	return handled, errors.Join(errs...)
}

// handle moves one entry to its next state and reports the outcome.
func (m *DLQManager) handle(ctx context.Context, entry dlqEntry) (string, error) {
	log := m.logger.With().Int64("dlq_id", entry.ID).Str("event_type", entry.EventType).Str("tenant_id", entry.TenantID).Logger()

	var outcome string
	err := inTenantTx(ctx, m.pool, entry.TenantID, func(tx pgx.Tx) error {
		if entry.RetryCount >= m.maxRetries {
			outcome = outcomeQuarantined
			_, err := tx.Exec(ctx, `UPDATE outbox_dlq SET quarantined_at = NOW(), quarantine_reason = $1 WHERE dlq_id = $2`, "retry limit reached", entry.ID)
			return err
		}

		requeueErr := requeue(ctx, tx, entry)
		if requeueErr == nil {
			outcome = outcomeRequeued
			_, err := tx.Exec(ctx, `DELETE FROM outbox_dlq WHERE dlq_id = $1`, entry.ID)
			return err
		}

		outcome = outcomeRetryScheduled
		delay := m.backoffDelay(entry.RetryCount + 1)
		log = log.With().AnErr("requeue_error", requeueErr).Dur("next_retry_in", delay).Logger()
		_, err := tx.Exec(ctx, `UPDATE outbox_dlq
   SET retry_count = retry_count + 1,
       last_attempt_at = NOW(),
       next_retry_at = NOW() + $1::interval,
       reason = $2
 WHERE dlq_id = $3`, interval(delay), requeueErr.Error(), entry.ID)
		return err
	})
	if err != nil {
		return "", err
	}

	switch outcome {
	case outcomeQuarantined:
		log.Warn().Int("retries", entry.RetryCount).Msg("dlq entry quarantined")
	case outcomeRetryScheduled:
		log.Warn().Msg("dlq requeue failed, retry scheduled")
	default:
		log.Debug().Msg("dlq entry requeued")
	}
	return outcome, nil
}

// backoffDelay doubles baseDelay per attempt, capped at maxBackoff.
func (m *DLQManager) backoffDelay(attempt int) time.Duration {
	delay := m.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff || delay <= 0 {
			return maxBackoff
		}
	}
	return min(delay, maxBackoff)
}

// requeue copies entry back into the outbox under a savepoint, leaving tx
// usable when the insert fails.
func requeue(ctx context.Context, tx pgx.Tx, entry dlqEntry) error {
	if entry.SchemaSubject == "" {
		return fmt.Errorf("missing schema_subject for dlq entry %d", entry.ID)
	}

	return pgx.BeginFunc(ctx, tx, func(sp pgx.Tx) error {
		_, err := sp.Exec(ctx, `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			entry.TenantID, entry.AggregateType, entry.AggregateID, entry.EventType,
			entry.Topic, entry.SchemaSubject, entry.PartitionKey, entry.Payload)
		return err
	})
}

func (m *DLQManager) refreshBacklog(ctx context.Context) {
	var waiting int
	if err := m.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&waiting); err != nil {
		m.logger.Debug().Err(err).Msg("dlq backlog count failed")
		return
	}
	dlqBacklog.Set(float64(waiting))
}
