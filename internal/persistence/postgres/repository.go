package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/planner/internal/calendar"
	"example.com/planner/internal/domain"
	"example.com/planner/internal/observability"
	platformevents "example.com/planner/pkg/platform/events"
)

const activityColumns = `activity_id, tenant_id, user_id, title, description, location, activity_date, start_time, end_time,
        category, tag, emoji, with_partner, lead_time_min, reviewed, rating, review, mood, version, created_at, updated_at`

// Repository provides Postgres-backed persistence for activities and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

var _ domain.ActivityRepository = (*Repository)(nil)

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// inTenant runs fn in a transaction scoped to tenantID for row-level security.
func (r *Repository) inTenant(ctx context.Context, tenantID string, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// FindByIdempotency checks if an activity already exists for the supplied idempotency key.
func (r *Repository) FindByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*domain.ActivityAggregate, error) {
	if idempotencyKey == "" {
		return nil, nil
	}

	var found *domain.ActivityAggregate
	err := r.inTenant(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+activityColumns+`
        FROM activities WHERE tenant_id=$1 AND user_id=$2 AND idempotency_key=$3`, tenantID, userID, idempotencyKey)
		agg, err := scanActivity(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		found = agg
		return err
	})
	return found, err
}

// Create persists the aggregate and records the scheduled event inside a single transaction.
func (r *Repository) Create(ctx context.Context, aggregate domain.ActivityAggregate, idempotencyKey string) error {
	err := r.inTenant(ctx, aggregate.TenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO activities (`+activityColumns+`, idempotency_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
			aggregate.ID,
			aggregate.TenantID,
			aggregate.UserID,
			aggregate.Title,
			aggregate.Description,
			aggregate.Location,
			pgDate(aggregate.Date),
			pgTime(aggregate.StartTime),
			pgTime(aggregate.EndTime),
			string(aggregate.Category),
			aggregate.Tag,
			aggregate.Emoji,
			aggregate.WithPartner,
			aggregate.LeadTimeMin,
			aggregate.Reviewed,
			aggregate.Rating,
			aggregate.Review,
			string(aggregate.Mood),
			aggregate.Version,
			aggregate.CreatedAt,
			aggregate.UpdatedAt,
			nullIfEmpty(idempotencyKey),
		)
		if err != nil {
			return err
		}
		return r.insertOutbox(ctx, tx, aggregate, platformevents.ActivityScheduledType,
			platformevents.ActivityScheduled(snapshot(aggregate, aggregate.CreatedAt)))
	})
	if err != nil {
		return err
	}
	observability.RecordActivityPersisted(aggregate.UpdatedAt)
	return nil
}

// Update stores the aggregate if nobody else has bumped its version, and
// records the matching outbox event.
func (r *Repository) Update(ctx context.Context, aggregate domain.ActivityAggregate, kind domain.UpdateKind) error {
	err := r.inTenant(ctx, aggregate.TenantID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE activities SET
            title=$3, description=$4, location=$5, activity_date=$6, start_time=$7, end_time=$8,
            category=$9, tag=$10, emoji=$11, with_partner=$12, lead_time_min=$13,
            reviewed=$14, rating=$15, review=$16, mood=$17, version=$18, updated_at=$19
        WHERE tenant_id=$1 AND activity_id=$2 AND version=$18-1`,
			aggregate.TenantID,
			aggregate.ID,
			aggregate.Title,
			aggregate.Description,
			aggregate.Location,
			pgDate(aggregate.Date),
			pgTime(aggregate.StartTime),
			pgTime(aggregate.EndTime),
			string(aggregate.Category),
			aggregate.Tag,
			aggregate.Emoji,
			aggregate.WithPartner,
			aggregate.LeadTimeMin,
			aggregate.Reviewed,
			aggregate.Rating,
			aggregate.Review,
			string(aggregate.Mood),
			aggregate.Version,
			aggregate.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM activities WHERE tenant_id=$1 AND activity_id=$2)`,
				aggregate.TenantID, aggregate.ID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return domain.ErrActivityNotFound
			}
			return domain.ErrVersionConflict
		}

		if kind == domain.UpdateReview {
			return r.insertOutbox(ctx, tx, aggregate, platformevents.ActivityReviewedType, platformevents.ActivityReviewed{
				ActivityID: aggregate.ID,
				TenantID:   aggregate.TenantID,
				UserID:     aggregate.UserID,
				Date:       aggregate.Date.String(),
				Rating:     aggregate.Rating,
				Mood:       string(aggregate.Mood),
				Version:    aggregate.Version,
				ReviewedAt: aggregate.UpdatedAt,
			})
		}
		return r.insertOutbox(ctx, tx, aggregate, platformevents.ActivityUpdatedType,
			platformevents.ActivityUpdated(snapshot(aggregate, aggregate.UpdatedAt)))
	})
	if err != nil {
		return err
	}
	observability.RecordActivityPersisted(aggregate.UpdatedAt)
	return nil
}

// Delete removes the activity and records the deleted event.
func (r *Repository) Delete(ctx context.Context, tenantID, activityID string) error {
	now := time.Now().UTC()
	return r.inTenant(ctx, tenantID, func(tx pgx.Tx) error {
		var (
			userID string
			date   time.Time
		)
		err := tx.QueryRow(ctx, `DELETE FROM activities WHERE tenant_id=$1 AND activity_id=$2 RETURNING user_id, activity_date`,
			tenantID, activityID).Scan(&userID, &date)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrActivityNotFound
		}
		if err != nil {
			return err
		}

		aggregate := domain.ActivityAggregate{ID: activityID, TenantID: tenantID, UserID: userID, Date: civil.DateOf(date)}
		return r.insertOutbox(ctx, tx, aggregate, platformevents.ActivityDeletedType, platformevents.ActivityDeleted{
			ActivityID: activityID,
			TenantID:   tenantID,
			UserID:     userID,
			Date:       aggregate.Date.String(),
			DeletedAt:  now,
		})
	})
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, aggregate domain.ActivityAggregate, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	route, ok := platformevents.Routes[eventType]
	meta, known := eventCatalog[eventType]
	if !ok || !known {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		aggregate.TenantID,
		"activity",
		aggregate.ID,
		eventType,
		route.Topic,
		route.SchemaSubject,
		meta.PartitionKeyFn(aggregate),
		body,
		meta.DedupeKeyFn(aggregate, eventType),
	)
	return err
}

// Get retrieves an activity by ID, or nil when it is not visible to the tenant.
func (r *Repository) Get(ctx context.Context, tenantID, activityID string) (*domain.ActivityAggregate, error) {
	var found *domain.ActivityAggregate
	err := r.inTenant(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+activityColumns+`
        FROM activities WHERE tenant_id=$1 AND activity_id=$2`, tenantID, activityID)
		agg, err := scanActivity(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		found = agg
		return err
	})
	return found, err
}

// ListByUser returns a user's activities in calendar order.
func (r *Repository) ListByUser(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityAggregate, *domain.Cursor, error) {
	args := []interface{}{tenantID, userID, limit}
	query := `SELECT ` + activityColumns + `
        FROM activities WHERE tenant_id=$1 AND user_id=$2`

	if cursor != nil {
		query += ` AND (activity_date, start_time, activity_id) > ($4, $5, $6)`
		args = append(args, pgDate(cursor.Date), pgTime(cursor.Start), cursor.ID)
	}

	query += ` ORDER BY activity_date, start_time, activity_id LIMIT $3`

	var results []domain.ActivityAggregate
	err := r.inTenant(ctx, tenantID, func(tx pgx.Tx) error {
		var err error
		results, err = queryActivities(ctx, tx, query, args...)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{Date: last.Date, Start: last.StartTime, ID: last.ID}
	}

	return results, nextCursor, nil
}

// ListInRange returns activities dated within [from, to]; an empty userID covers the whole tenant.
func (r *Repository) ListInRange(ctx context.Context, tenantID, userID string, from, to civil.Date) ([]domain.ActivityAggregate, error) {
	args := []interface{}{tenantID, pgDate(from), pgDate(to)}
	query := `SELECT ` + activityColumns + `
        FROM activities WHERE tenant_id=$1 AND activity_date BETWEEN $2 AND $3`
	if userID != "" {
		query += ` AND user_id=$4`
		args = append(args, userID)
	}
	query += ` ORDER BY activity_date, start_time, activity_id`

	var results []domain.ActivityAggregate
	err := r.inTenant(ctx, tenantID, func(tx pgx.Tx) error {
		var err error
		results, err = queryActivities(ctx, tx, query, args...)
		return err
	})
	return results, err
}

func queryActivities(ctx context.Context, tx pgx.Tx, query string, args ...interface{}) ([]domain.ActivityAggregate, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ActivityAggregate, 0)
	for rows.Next() {
		agg, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *agg)
	}
	return results, rows.Err()
}

func scanActivity(row pgx.Row) (*domain.ActivityAggregate, error) {
	var (
		agg        domain.ActivityAggregate
		date       time.Time
		start, end pgtype.Time
		category   string
		mood       string
	)
	if err := row.Scan(&agg.ID, &agg.TenantID, &agg.UserID, &agg.Title, &agg.Description, &agg.Location,
		&date, &start, &end, &category, &agg.Tag, &agg.Emoji, &agg.WithPartner, &agg.LeadTimeMin,
		&agg.Reviewed, &agg.Rating, &agg.Review, &mood, &agg.Version, &agg.CreatedAt, &agg.UpdatedAt); err != nil {
		return nil, err
	}
	agg.Date = civil.DateOf(date)
	agg.StartTime = timeOfDay(start)
	agg.EndTime = timeOfDay(end)
	agg.Category = calendar.Category(category)
	agg.Mood = domain.Mood(mood)
	return &agg, nil
}

func snapshot(a domain.ActivityAggregate, at time.Time) platformevents.ActivitySnapshot {
	return platformevents.ActivitySnapshot{
		ActivityID:  a.ID,
		TenantID:    a.TenantID,
		UserID:      a.UserID,
		Title:       a.Title,
		Date:        a.Date.String(),
		StartTime:   a.StartTime.String(),
		EndTime:     a.EndTime.String(),
		Category:    string(a.Category),
		Tag:         a.Tag,
		WithPartner: a.WithPartner,
		LeadTimeMin: a.LeadTimeMin,
		Version:     a.Version,
		OccurredAt:  at,
	}
}

func pgDate(d civil.Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: true}
}

func pgTime(t calendar.TimeOfDay) pgtype.Time {
	micros := (int64(t.Hour)*3600+int64(t.Minute)*60+int64(t.Second))*1_000_000 + int64(t.Nanosecond)/1_000
	return pgtype.Time{Microseconds: micros, Valid: true}
}

func timeOfDay(t pgtype.Time) calendar.TimeOfDay {
	d := time.Duration(t.Microseconds) * time.Microsecond
	return calendar.TimeOfDay{Time: civil.Time{
		Hour:       int(d / time.Hour),
		Minute:     int(d % time.Hour / time.Minute),
		Second:     int(d % time.Minute / time.Second),
		Nanosecond: int(d % time.Second),
	}}
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// EventMetadata describes how to key an outbox event.
type EventMetadata struct {
	PartitionKeyFn func(domain.ActivityAggregate) string
	DedupeKeyFn    func(domain.ActivityAggregate, string) string
}

func byCouplePartner(a domain.ActivityAggregate) string {
	return fmt.Sprintf("%s:%s", a.TenantID, a.UserID)
}

func byVersion(a domain.ActivityAggregate, eventType string) string {
	return fmt.Sprintf("%s:%s:%d", a.ID, eventType, a.Version)
}

var eventCatalog = map[string]EventMetadata{
	platformevents.ActivityScheduledType: {PartitionKeyFn: byCouplePartner, DedupeKeyFn: byVersion},
	platformevents.ActivityUpdatedType:   {PartitionKeyFn: byCouplePartner, DedupeKeyFn: byVersion},
	platformevents.ActivityDeletedType: {
		PartitionKeyFn: byCouplePartner,
		DedupeKeyFn: func(a domain.ActivityAggregate, eventType string) string {
			return fmt.Sprintf("%s:%s", a.ID, eventType)
		},
	},
	platformevents.ActivityReviewedType: {
		PartitionKeyFn: func(a domain.ActivityAggregate) string { return a.ID },
		DedupeKeyFn:    byVersion,
	},
}
