package consumer

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeProcessed    = "processed"
	outcomeHandlerError = "handler_error"
	outcomeMalformed    = "malformed"

	unknownEventType = "unknown"
)

var (
	recordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner_service",
		Subsystem: "consumer",
		Name:      "records_total",
		Help:      "Kafka records seen by the consumer, by topic, event type and outcome.",
	}, []string{"topic", "event_type", "outcome"})

	invalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner_service",
		Subsystem: "consumer",
		Name:      "calendar_invalidations_total",
		Help:      "Calendar view invalidations triggered by consumed events.",
	}, []string{"event_type", "result"})

	lastProcessed = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "planner_service",
		Subsystem: "consumer",
		Name:      "last_processed_timestamp_seconds",
		Help:      "Record timestamp of the newest committed event per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(recordsTotal, invalidations, lastProcessed)
}

func recordOutcome(topic, eventType, outcome string) {
	recordsTotal.WithLabelValues(topic, eventType, outcome).Inc()
}

func recordProcessed(msg Message) {
	recordOutcome(msg.Topic, msg.EventType, outcomeProcessed)
	if !msg.Timestamp.IsZero() {
		lastProcessed.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordInvalidation(eventType, result string) {
	invalidations.WithLabelValues(eventType, result).Inc()
}
