// Package memory provides an in-process activity repository for local development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"example.com/planner/internal/calendar"
	"example.com/planner/internal/domain"
	"example.com/planner/internal/persistence"
)

type idempotencyKey struct {
	tenantID, userID, key string
}

// Repository stores activities in memory.
type Repository struct {
	mu          sync.RWMutex
	activities  map[string]domain.ActivityAggregate
	idempotency map[idempotencyKey]string
}

var _ domain.ActivityRepository = (*Repository)(nil)

// NewRepository constructs an empty repository.
func NewRepository() *Repository {
	return &Repository{
		activities:  make(map[string]domain.ActivityAggregate),
		idempotency: make(map[idempotencyKey]string),
	}
}

// FindByIdempotency implements domain.ActivityRepository.
func (r *Repository) FindByIdempotency(_ context.Context, tenantID, userID, key string) (*domain.ActivityAggregate, error) {
	if key == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idempotency[idempotencyKey{tenantID, userID, key}]
	if !ok {
		return nil, nil
	}
	agg := r.activities[id]
	return &agg, nil
}

// Create implements domain.ActivityRepository.
func (r *Repository) Create(_ context.Context, aggregate domain.ActivityAggregate, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if aggregate.ID == "" {
		aggregate.ID = uuid.NewString()
	}
	if _, exists := r.activities[aggregate.ID]; exists {
		return fmt.Errorf("activity %s already exists", aggregate.ID)
	}
	if key != "" {
		ik := idempotencyKey{aggregate.TenantID, aggregate.UserID, key}
		if _, taken := r.idempotency[ik]; taken {
			return domain.ErrIdempotentReplay
		}
		r.idempotency[ik] = aggregate.ID
	}
	r.activities[aggregate.ID] = aggregate
	return nil
}

// Get returns the activity, or nil when it does not exist in the tenant.
func (r *Repository) Get(_ context.Context, tenantID, activityID string) (*domain.ActivityAggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agg, ok := r.activities[activityID]
	if !ok || agg.TenantID != tenantID {
		return nil, nil
	}
	return &agg, nil
}

// Update implements domain.ActivityRepository.
func (r *Repository) Update(_ context.Context, aggregate domain.ActivityAggregate, _ domain.UpdateKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.activities[aggregate.ID]
	if !ok || stored.TenantID != aggregate.TenantID {
		return domain.ErrActivityNotFound
	}
	if stored.Version != aggregate.Version-1 {
		return domain.ErrVersionConflict
	}
	r.activities[aggregate.ID] = aggregate
	return nil
}

// Delete implements domain.ActivityRepository.
func (r *Repository) Delete(_ context.Context, tenantID, activityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.activities[activityID]
	if !ok || stored.TenantID != tenantID {
		return domain.ErrActivityNotFound
	}
	delete(r.activities, activityID)
	for k, id := range r.idempotency {
		if id == activityID {
			delete(r.idempotency, k)
		}
	}
	return nil
}

// ListByUser returns a user's activities in (date, start time, id) order.
func (r *Repository) ListByUser(_ context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityAggregate, *domain.Cursor, error) {
	r.mu.RLock()
	matches := make([]domain.ActivityAggregate, 0)
	for _, agg := range r.activities {
		if agg.TenantID == tenantID && agg.UserID == userID && persistence.After(cursor, agg) {
			matches = append(matches, agg)
		}
	}
	r.mu.RUnlock()

	sortChronologically(matches)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	var next *domain.Cursor
	if limit > 0 && len(matches) == limit {
		last := matches[len(matches)-1]
		next = &domain.Cursor{Date: last.Date, Start: last.StartTime, ID: last.ID}
	}
	return matches, next, nil
}

// ListInRange implements domain.ActivityRepository.
func (r *Repository) ListInRange(_ context.Context, tenantID, userID string, from, to civil.Date) ([]domain.ActivityAggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ActivityAggregate, 0)
	for _, agg := range r.activities {
		if agg.TenantID != tenantID || (userID != "" && agg.UserID != userID) {
			continue
		}
		if agg.Date.Before(from) || agg.Date.After(to) {
			continue
		}
		out = append(out, agg)
	}
	sortChronologically(out)
	return out, nil
}

// Len returns the number of stored activities.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activities)
}

func sortChronologically(aggs []domain.ActivityAggregate) {
	slices.SortFunc(aggs, func(a, b domain.ActivityAggregate) int {
		switch {
		case a.Date.Before(b.Date):
			return -1
		case a.Date.After(b.Date):
			return 1
		}
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

// Seed loads a week of sample activities for one couple, starting on anchor.
func (r *Repository) Seed(tenantID, userID, partnerID string, anchor civil.Date) {
	now := time.Now().UTC()
	samples := []struct {
		day         int
		title       string
		start, end  calendar.TimeOfDay
		withPartner bool
		tag, emoji  string
		owner       string
	}{
		{0, "Morning Jog", calendar.Clock(7, 0), calendar.Clock(8, 0), false, "exercise", "🏃", userID},
		{0, "Dinner Date", calendar.Clock(19, 0), calendar.Clock(21, 0), true, "date", "🍽️", userID},
		{0, "Movie Night", calendar.Clock(21, 30), calendar.Clock(23, 30), true, "entertainment", "🎬", partnerID},
		{1, "Work Meeting", calendar.Clock(10, 0), calendar.Clock(11, 0), false, "work", "💼", partnerID},
		{2, "Grocery Shopping", calendar.Clock(16, 0), calendar.Clock(17, 30), true, "shopping", "🛒", userID},
		{3, "Gym Session", calendar.Clock(18, 0), calendar.Clock(19, 30), false, "exercise", "💪", partnerID},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range samples {
		category := calendar.CategoryPersonal
		if s.withPartner {
			category = calendar.CategoryCouple
		}
		id := uuid.NewString()
		r.activities[id] = domain.ActivityAggregate{
			ID:          id,
			TenantID:    tenantID,
			UserID:      s.owner,
			Title:       s.title,
			Date:        anchor.AddDays(s.day),
			StartTime:   s.start,
			EndTime:     s.end,
			Category:    category,
			Tag:         s.tag,
			Emoji:       s.emoji,
			WithPartner: s.withPartner,
			LeadTimeMin: calendar.DefaultLeadTime,
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
}
