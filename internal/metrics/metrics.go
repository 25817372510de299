package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the application's collectors on one registerer.
type Metrics struct {
	CheckinOutcomes *prometheus.CounterVec
	CheckinDistance prometheus.Histogram
	Phases          *prometheus.CounterVec
	Recorded        *prometheus.CounterVec
	WorkerProcessed *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CheckinOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "centre",
			Name:      "checkin_outcomes_total",
			Help:      "Check-in attempts by outcome reason (admitted on success).",
		}, []string{"reason"}),
		CheckinDistance: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "centre",
			Name:      "checkin_distance_meters",
			Help:      "Measured distance from the centre for located check-ins.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 200, 500, 1000, 5000},
		}),
		Phases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "centre",
			Name:      "checkin_phase_transitions_total",
			Help:      "Check-in phase transitions.",
		}, []string{"to"}),
		Recorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "centre",
			Name:      "attendance_submissions_total",
			Help:      "Attendance submissions by result.",
		}, []string{"result"}),
		WorkerProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "centre",
			Name:      "worker_messages_total",
			Help:      "Queue messages handled by the worker.",
		}, []string{"type", "result"}),
	}
}
