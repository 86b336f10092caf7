//go:build integration

package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"example.com/planner/internal/testsupport"
	platformevents "example.com/planner/pkg/platform/events"
)

func TestDispatcherPublishesMessages(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	tenantID := uuid.NewString()
	require.NotZero(t, seedOutbox(t, ctx, pool, tenantID, uuid.NewString(), platformevents.ActivityScheduledType))

	producer := &stubProducer{}
	dispatcher := NewDispatcher(pool, producer, &stubRegistry{id: 42}, 10*time.Millisecond, 5)

	beforePublished := testutil.ToFloat64(publishedEvents.WithLabelValues(platformevents.ActivityEventsTopic))
	beforeHistogram := histogramSampleCount(t)

	require.NoError(t, dispatcher.drainOnce(ctx))

	require.Len(t, producer.writes, 1)
	require.Equal(t, platformevents.ActivityEventsTopic, producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 1)

	require.InDelta(t, beforePublished+1, testutil.ToFloat64(publishedEvents.WithLabelValues(platformevents.ActivityEventsTopic)), 0.0001)
	require.Greater(t, histogramSampleCount(t), beforeHistogram)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)

	require.NoError(t, dispatcher.drainOnce(ctx))
	require.Len(t, producer.writes, 1, "published rows are not delivered twice")
}

func TestDispatcherSkipsRowsClaimedByAnotherReplica(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	require.NotZero(t, seedOutbox(t, ctx, pool, uuid.NewString(), uuid.NewString(), platformevents.ActivityUpdatedType))

	first := NewDispatcher(pool, &stubProducer{}, &stubRegistry{}, time.Second, 5, WithClaimLease(time.Hour))
	claimed, err := first.claimBatch(ctx)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	second := NewDispatcher(pool, &stubProducer{}, &stubRegistry{}, time.Second, 5, WithClaimLease(time.Hour))
	again, err := second.claimBatch(ctx)
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestDispatcherRoutesMessagesToDLQOnFailure(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	tenantID := uuid.NewString()
	require.NotZero(t, seedOutbox(t, ctx, pool, tenantID, uuid.NewString(), platformevents.ActivityReviewedType))

	producer := &stubProducer{err: errors.New("kafka write failed")}
	dispatcher := NewDispatcher(pool, producer, &stubRegistry{id: 7}, 10*time.Millisecond, 5, WithDispatcherLogger(zerolog.Nop()))

	beforeDLQ := testutil.ToFloat64(deadLettered.WithLabelValues(platformevents.ActivityReviewsTopic))

	require.NoError(t, dispatcher.drainOnce(ctx))

	require.InDelta(t, beforeDLQ+1, testutil.ToFloat64(deadLettered.WithLabelValues(platformevents.ActivityReviewsTopic)), 0.0001)

	var dlqCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE tenant_id = $1`, tenantID).Scan(&dlqCount))
	require.Equal(t, 1, dlqCount)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)
}

func TestDispatcherUnknownSchemaMovesEventsToDLQ(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	eventID := seedOutbox(t, ctx, pool, uuid.NewString(), uuid.NewString(), "activity.unknown")
	require.NotZero(t, eventID)

	producer := &stubProducer{}
	registry := &stubRegistry{id: 99}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 5)

	require.NoError(t, dispatcher.drainOnce(ctx))

	require.Empty(t, producer.writes, "unknown schema should skip kafka writes")
	require.Empty(t, registry.calls, "schema registry should not be invoked when metadata missing")

	var dlqCount int
	var reason string
	err := pool.QueryRow(ctx, `SELECT COUNT(*), MAX(reason) FROM outbox_dlq WHERE event_id = $1`, eventID).Scan(&dlqCount, &reason)
	require.NoError(t, err)
	require.Equal(t, 1, dlqCount)
	require.Contains(t, reason, "no schema metadata for event_type=activity.unknown")
}

func TestDLQManagerQuarantinesAfterRetryLimit(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	tenantID := uuid.NewString()
	msg := Message{
		EventID:       1,
		TenantID:      tenantID,
		AggregateType: "activity",
		AggregateID:   uuid.NewString(),
		EventType:     platformevents.ActivityDeletedType,
		Topic:         platformevents.ActivityEventsTopic,
		PartitionKey:  tenantID,
		Payload:       json.RawMessage(`{}`),
	}
	require.NoError(t, deadLetter(ctx, pool, msg, "missing subject"))

	manager := NewDLQManager(pool, 1, time.Millisecond, zerolog.Nop())
	beforeRetry := testutil.ToFloat64(dlqOutcomes.WithLabelValues(outcomeRetryScheduled, msg.EventType))

	processed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, processed)
	require.InDelta(t, beforeRetry+1, testutil.ToFloat64(dlqOutcomes.WithLabelValues(outcomeRetryScheduled, msg.EventType)), 0.0001)

	require.Eventually(t, func() bool {
		n, err := manager.RunOnce(ctx, 10)
		return err == nil && n == 1
	}, 5*time.Second, 50*time.Millisecond)

	var quarantined int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NOT NULL`).Scan(&quarantined))
	require.Equal(t, 1, quarantined)
	require.Zero(t, testutil.ToFloat64(dlqBacklog))
}

func histogramSampleCount(t *testing.T) uint64 {
	t.Helper()

	metric := &dto.Metric{}
	require.NoError(t, batchDuration.Write(metric))
	hist := metric.GetHistogram()
	require.NotNil(t, hist)
	return hist.GetSampleCount()
}

func seedOutbox(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tenantID, aggregateID, eventType string) int64 {
	t.Helper()

	route, ok := platformevents.Routes[eventType]
	if !ok {
		route = platformevents.Route{Topic: platformevents.ActivityEventsTopic, SchemaSubject: platformevents.ActivityEventsTopic + "-value"}
	}

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID)
	require.NoError(t, err)

	payloadBytes, err := json.Marshal(platformevents.Envelope{
		ActivityID: aggregateID,
		TenantID:   tenantID,
		UserID:     "alex",
		Date:       "2023-06-15",
	})
	require.NoError(t, err)

	row := tx.QueryRow(ctx,
		`INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
         RETURNING event_id`,
		tenantID,
		"activity",
		aggregateID,
		eventType,
		route.Topic,
		route.SchemaSubject,
		tenantID+":alex",
		payloadBytes,
	)

	var eventID int64
	require.NoError(t, row.Scan(&eventID))
	require.NoError(t, tx.Commit(ctx))
	return eventID
}
