// Package observability holds service-wide Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/planner/internal/calendar"
)

const namespace = "planner_service"

var (
	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity write committed to Postgres.",
	})
	activityPublishedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "persistence",
		Name:      "last_activity_published_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity event marked published by the outbox.",
	})
	skippedActivities = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "calendar",
		Name:      "activities_skipped_total",
		Help:      "Activities left out of calendar aggregation, by reason.",
	}, []string{"reason"})
	viewBuildDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "calendar",
		Name:      "view_build_duration_seconds",
		Help:      "Time spent loading activities and building a calendar view.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"mode"})
)

func init() {
	prometheus.MustRegister(activityPersistGauge, activityPublishedGauge, skippedActivities, viewBuildDuration)
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// RecordActivityPublished updates the publish watermark gauge.
func RecordActivityPublished(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPublishedGauge.Set(float64(ts.Unix()))
}

// RecordActivitySkipped counts an activity dropped by the aggregator.
// It has the calendar.SkipHook signature.
func RecordActivitySkipped(_ string, reason string) {
	skippedActivities.WithLabelValues(reason).Inc()
}

var _ calendar.SkipHook = RecordActivitySkipped

// RecordCalendarViewBuilt observes an uncached view build.
func RecordCalendarViewBuilt(mode calendar.WindowMode, elapsed time.Duration) {
	viewBuildDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
}
