package outbox

import "github.com/prometheus/client_golang/prometheus"

// DLQ replay outcomes, used as the outcome label of dlqOutcomes.
const (
	outcomeRequeued       = "requeued"
	outcomeRetryScheduled = "retry_scheduled"
	outcomeQuarantined    = "quarantined"
)

var (
	publishedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner_service",
		Subsystem: "outbox",
		Name:      "events_published_total",
		Help:      "Planner events written to Kafka, by topic.",
	}, []string{"topic"})

	deadLettered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner_service",
		Subsystem: "outbox",
		Name:      "events_dead_lettered_total",
		Help:      "Planner events parked in outbox_dlq after a failed delivery, by topic.",
	}, []string{"topic"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "planner_service",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent delivering and marking one claimed batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	dlqOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner_service",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "DLQ entries handled by the replay loop, by outcome and event type.",
	}, []string{"outcome", "event_type"})

	dlqBacklog = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "planner_service",
		Subsystem: "dlq",
		Name:      "backlog",
		Help:      "DLQ entries still waiting for replay.",
	})
)

func init() {
	prometheus.MustRegister(publishedEvents, deadLettered, batchDuration, dlqOutcomes, dlqBacklog)
}
