package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	viewLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner_service",
		Subsystem: "view_cache",
		Name:      "lookups_total",
		Help:      "Calendar view cache lookups by result.",
	}, []string{"result"})

	viewInvalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner_service",
		Subsystem: "view_cache",
		Name:      "invalidations_total",
		Help:      "Tenant invalidations by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(viewLookups, viewInvalidations)
}

func recordLookup(hit bool) {
	if hit {
		viewLookups.WithLabelValues("hit").Inc()
		return
	}
	viewLookups.WithLabelValues("miss").Inc()
}

func recordInvalidation(err error) {
	if err != nil {
		viewInvalidations.WithLabelValues("error").Inc()
		return
	}
	viewInvalidations.WithLabelValues("ok").Inc()
}
