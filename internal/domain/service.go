// Package domain defines the business logic for the planner service.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/planner/internal/calendar"
)

var (
	// ErrIdempotentReplay indicates an existing activity was found for the provided idempotency key.
	ErrIdempotentReplay = errors.New("activity already exists for idempotency key")
	// ErrActivityNotFound is returned when an activity cannot be located.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrInvalidActivity wraps validation failures on activity input.
	ErrInvalidActivity = errors.New("invalid activity")
	// ErrReviewNotAllowed is returned when reviewing an activity that has not happened yet.
	ErrReviewNotAllowed = errors.New("activity cannot be reviewed before it takes place")
	// ErrVersionConflict is returned when an update races with another writer.
	ErrVersionConflict = errors.New("activity was modified concurrently")
)

// UpdateKind tells the repository which event an update emits.
type UpdateKind string

const (
	UpdateDetails UpdateKind = "details"
	UpdateReview  UpdateKind = "review"
)

// ActivityRepository captures persistence operations.
type ActivityRepository interface {
	FindByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*ActivityAggregate, error)
	Create(ctx context.Context, aggregate ActivityAggregate, idempotencyKey string) error
	Get(ctx context.Context, tenantID, activityID string) (*ActivityAggregate, error)
	// Update stores aggregate if the stored version is aggregate.Version-1.
	Update(ctx context.Context, aggregate ActivityAggregate, kind UpdateKind) error
	Delete(ctx context.Context, tenantID, activityID string) error
	ListByUser(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]ActivityAggregate, *Cursor, error)
	// ListInRange returns activities dated within [from, to]. An empty userID spans the whole tenant.
	ListInRange(ctx context.Context, tenantID, userID string, from, to civil.Date) ([]ActivityAggregate, error)
}

// Cursor models the pagination token.
type Cursor struct {
	Date  civil.Date
	Start calendar.TimeOfDay
	ID    string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithViewStore caches calendar views.
func WithViewStore(store ViewStore) ServiceOption {
	return func(s *Service) { s.views = store }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithAggregator overrides the calendar aggregator.
func WithAggregator(agg *calendar.Aggregator) ServiceOption {
	return func(s *Service) { s.aggregator = agg }
}

// Service orchestrates activity workflows.
type Service struct {
	repo       ActivityRepository
	views      ViewStore
	aggregator *calendar.Aggregator
	now        func() time.Time
	logger     zerolog.Logger
}

// NewService constructs a Service.
func NewService(repo ActivityRepository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		views:  nopViewStore{},
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.aggregator == nil {
		s.aggregator = calendar.New(calendar.WithLogger(s.logger))
	}
	return s
}

// CreateActivityInput captures the payload from the API layer.
type CreateActivityInput struct {
	TenantID       string
	UserID         string
	IdempotencyKey string
	ActivityDetails
}

// CreateActivity handles idempotent create semantics and outbox recording.
func (s *Service) CreateActivity(ctx context.Context, input CreateActivityInput) (*ActivityAggregate, bool, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, false, fmt.Errorf("%w: user_id is required", ErrInvalidActivity)
	}
	details, err := input.ActivityDetails.normalize()
	if err != nil {
		return nil, false, err
	}

	if existing, err := s.repo.FindByIdempotency(ctx, input.TenantID, input.UserID, input.IdempotencyKey); err == nil && existing != nil {
		return existing, true, nil
	}

	now := s.now().UTC()
	aggregate := ActivityAggregate{
		ID:        uuid.NewString(),
		TenantID:  input.TenantID,
		UserID:    input.UserID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	details.apply(&aggregate)

	if err := s.repo.Create(ctx, aggregate, input.IdempotencyKey); err != nil {
		return nil, false, err
	}
	s.invalidate(ctx, aggregate.TenantID)

	return &aggregate, false, nil
}

// GetActivity fetches by ID.
func (s *Service) GetActivity(ctx context.Context, tenantID, activityID string) (*ActivityAggregate, error) {
	agg, err := s.repo.Get(ctx, tenantID, activityID)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		return nil, ErrActivityNotFound
	}
	return agg, nil
}

// UpdateActivityInput replaces the editable fields of an activity.
type UpdateActivityInput struct {
	TenantID   string
	ActivityID string
	// ExpectedVersion, when non-zero, must match the stored version.
	ExpectedVersion int
	ActivityDetails
}

// UpdateActivity replaces an activity's details and bumps its version.
func (s *Service) UpdateActivity(ctx context.Context, input UpdateActivityInput) (*ActivityAggregate, error) {
	details, err := input.ActivityDetails.normalize()
	if err != nil {
		return nil, err
	}

	agg, err := s.GetActivity(ctx, input.TenantID, input.ActivityID)
	if err != nil {
		return nil, err
	}
	if input.ExpectedVersion != 0 && input.ExpectedVersion != agg.Version {
		return nil, fmt.Errorf("%w: expected version %d, stored %d", ErrVersionConflict, input.ExpectedVersion, agg.Version)
	}

	details.apply(agg)
	agg.Version++
	agg.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, *agg, UpdateDetails); err != nil {
		return nil, err
	}
	s.invalidate(ctx, agg.TenantID)
	return agg, nil
}

// ReviewActivityInput records how an activity went.
type ReviewActivityInput struct {
	TenantID   string
	ActivityID string
	Rating     int
	Review     string
	Mood       Mood
}

// ReviewActivity stores a rating, review text and mood on a past activity.
func (s *Service) ReviewActivity(ctx context.Context, input ReviewActivityInput) (*ActivityAggregate, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidActivity)
	}
	mood := input.Mood
	if mood != "" {
		parsed, err := ParseMood(string(mood))
		if err != nil {
			return nil, err
		}
		mood = parsed
	}

	agg, err := s.GetActivity(ctx, input.TenantID, input.ActivityID)
	if err != nil {
		return nil, err
	}

	today := civil.DateOf(s.now())
	if agg.Date.After(today) {
		return nil, fmt.Errorf("%w: scheduled for %s", ErrReviewNotAllowed, agg.Date)
	}

	agg.Reviewed = true
	agg.Rating = input.Rating
	agg.Review = strings.TrimSpace(input.Review)
	agg.Mood = mood
	agg.Version++
	agg.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, *agg, UpdateReview); err != nil {
		return nil, err
	}
	s.invalidate(ctx, agg.TenantID)
	return agg, nil
}

// DeleteActivity removes an activity.
func (s *Service) DeleteActivity(ctx context.Context, tenantID, activityID string) error {
	if err := s.repo.Delete(ctx, tenantID, activityID); err != nil {
		return err
	}
	s.invalidate(ctx, tenantID)
	return nil
}

// ListActivitiesByUser fetches activities with cursor pagination.
func (s *Service) ListActivitiesByUser(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]ActivityAggregate, *Cursor, error) {
	return s.repo.ListByUser(ctx, tenantID, userID, cursor, limit)
}

// invalidate drops cached calendar views for the tenant. Errors are logged, not returned.
func (s *Service) invalidate(ctx context.Context, tenantID string) {
	if err := s.views.Invalidate(ctx, tenantID); err != nil {
		s.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("calendar view invalidation failed")
	}
}
