package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waypointd",
			Name:      "registry_operations_total",
			Help:      "Registry operations by name and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	// SessionsActive tracks open disambiguation sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "waypointd",
			Name:      "sessions_active",
			Help:      "Number of pending disambiguation sessions.",
		},
	)

	sessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waypointd",
			Name:      "sessions_ended_total",
			Help:      "Disambiguation sessions by action and terminal state.",
		},
		[]string{"action", "state"},
	)
)

// Operation records the outcome of one registry operation, e.g.
// ("create", "conflict") or ("rename", "ok").
func Operation(operation, outcome string) {
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// SessionEnded records a session reaching a terminal state: selected,
// cancelled, timed_out, or replaced.
func SessionEnded(action, state string) {
	sessionsEnded.WithLabelValues(action, state).Inc()
}
