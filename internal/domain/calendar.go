package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"example.com/planner/internal/calendar"
	"example.com/planner/internal/observability"
)

// ViewSlot is an opaque cache location handed out by ViewStore.Get. It is
// bound to the tenant's cache state at lookup time; the empty slot is not
// cacheable.
type ViewSlot string

// ViewStore caches built calendar views per tenant. A view built after a
// miss is stored with Set under the slot that miss returned, never under a
// slot looked up later.
type ViewStore interface {
	Get(ctx context.Context, tenantID, key string) (value any, slot ViewSlot, found bool)
	Set(slot ViewSlot, value any, cost int64) bool
	Invalidate(ctx context.Context, tenantID string) error
}

type nopViewStore struct{}

func (nopViewStore) Get(context.Context, string, string) (any, ViewSlot, bool) { return nil, "", false }
func (nopViewStore) Set(ViewSlot, any, int64) bool                             { return false }
func (nopViewStore) Invalidate(context.Context, string) error                  { return nil }

// CalendarQuery selects the calendar screen to build.
type CalendarQuery struct {
	TenantID string
	UserID   string // empty shows both partners
	Date     civil.Date
	Mode     calendar.WindowMode
	Theme    calendar.ThemeMode
}

func (q CalendarQuery) cacheKey() string {
	return strings.Join([]string{q.UserID, q.Date.String(), string(q.Mode), string(q.Theme)}, "|")
}

// CalendarView is the marker map and agenda list for one focal date.
type CalendarView struct {
	Date          civil.Date          `json:"date"`
	Mode          calendar.WindowMode `json:"mode"`
	Theme         calendar.ThemeMode  `json:"theme"`
	Palette       calendar.Palette    `json:"palette"`
	SelectedColor string              `json:"selected_color"`
	Markers       calendar.MarkerMap  `json:"markers"`
	Items         []calendar.Activity `json:"items"`
}

// CalendarView loads the focal date's month and week and derives markers and
// the windowed agenda from them. The month grid shows trailing and leading
// days of adjacent months, so the loaded range is the union of both windows.
func (s *Service) CalendarView(ctx context.Context, q CalendarQuery) (CalendarView, bool, error) {
	if !q.Date.IsValid() {
		return CalendarView{}, false, fmt.Errorf("%w: date is invalid", ErrInvalidActivity)
	}
	if q.Mode == "" {
		q.Mode = calendar.WindowDay
	}
	if q.Theme == "" {
		q.Theme = calendar.ThemeSystem
	}

	key := q.cacheKey()
	cached, slot, ok := s.views.Get(ctx, q.TenantID, key)
	if ok {
		if view, ok := cached.(CalendarView); ok {
			return view, true, nil
		}
	}

	start := time.Now()
	from, to, err := loadRange(q.Date, q.Mode)
	if err != nil {
		return CalendarView{}, false, fmt.Errorf("%w: %v", ErrInvalidActivity, err)
	}

	aggs, err := s.repo.ListInRange(ctx, q.TenantID, q.UserID, from, to)
	if err != nil {
		return CalendarView{}, false, err
	}
	activities := Views(aggs)

	palette := calendar.PaletteFor(q.Theme)
	view := CalendarView{
		Date:          q.Date,
		Mode:          q.Mode,
		Theme:         q.Theme,
		Palette:       palette,
		SelectedColor: palette.Primary,
		Markers:       s.aggregator.BuildMarkerMap(activities, q.Date, palette.Resolve),
		Items:         s.aggregator.FilterByWindow(activities, q.Date, q.Mode),
	}
	observability.RecordCalendarViewBuilt(q.Mode, time.Since(start))

	s.views.Set(slot, view, int64(1+len(activities)))
	return view, false, nil
}

func loadRange(focal civil.Date, mode calendar.WindowMode) (civil.Date, civil.Date, error) {
	from, to, err := calendar.Window(focal, calendar.WindowMonth)
	if err != nil {
		return from, to, err
	}
	weekFrom, weekTo, _ := calendar.Window(focal, calendar.WindowWeek)
	if weekFrom.Before(from) {
		from = weekFrom
	}
	if weekTo.After(to) {
		to = weekTo
	}
	if _, _, err := calendar.Window(focal, mode); err != nil {
		return from, to, err
	}
	return from, to, nil
}
