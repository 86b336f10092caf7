package calendar

import (
	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
)

// SkipHook is notified whenever an activity is left out of an aggregation pass.
type SkipHook func(activityID, reason string)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger used to report skipped activities.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithSkipHook registers a callback for skipped activities.
func WithSkipHook(hook SkipHook) Option {
	return func(a *Aggregator) {
		a.onSkip = hook
	}
}

// Aggregator turns an activity snapshot into marker maps and windowed lists.
// It holds no state between calls; every method is a pure function of its
// arguments apart from diagnostics.
type Aggregator struct {
	logger zerolog.Logger
	onSkip SkipHook
}

// New constructs an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAggregator = New()

// BuildMarkerMap builds the day marker map using a silent Aggregator.
func BuildMarkerMap(activities []Activity, focal civil.Date, colors ColorResolver) MarkerMap {
	return defaultAggregator.BuildMarkerMap(activities, focal, colors)
}

// FilterByWindow filters activities using a silent Aggregator.
func FilterByWindow(activities []Activity, focal civil.Date, mode WindowMode) []Activity {
	return defaultAggregator.FilterByWindow(activities, focal, mode)
}

// usable reports whether an activity can take part in aggregation, logging the reason when not.
func (a *Aggregator) usable(act Activity) bool {
	reason := ""
	switch {
	case !act.Date.IsValid():
		reason = "invalid date"
	case !act.Category.Valid():
		reason = "unknown category"
	case act.EndTime.Compare(act.StartTime) < 0:
		reason = "ends before start"
	}
	if reason == "" {
		return true
	}

	a.logger.Warn().
		Str("activity_id", act.ID).
		Str("date", act.Date.String()).
		Str("category", string(act.Category)).
		Str("reason", reason).
		Msg("skipping activity")
	if a.onSkip != nil {
		a.onSkip(act.ID, reason)
	}
	return false
}
