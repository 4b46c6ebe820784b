package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all reminder dispatch metrics
type Metrics struct {
	RemindersSent      *prometheus.CounterVec
	RemindersFailed    *prometheus.CounterVec
	RemindersSkipped   *prometheus.CounterVec
	DispatchDuration   prometheus.Histogram
	DispatchRuns       *prometheus.CounterVec
	PendingReminders   *prometheus.GaugeVec
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates all dispatch metrics and registers them with reg.
// A nil reg uses the default prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RemindersSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Total number of reminders delivered",
		}, []string{"channel"}),
		RemindersFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_failed_total",
			Help:      "Total number of reminder delivery attempts that failed",
		}, []string{"channel"}),
		RemindersSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_skipped_total",
			Help:      "Pending subscriptions left alone by a run, by reason",
		}, []string{"reason"}),
		DispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminder_dispatch_duration_seconds",
			Help:      "Time spent in one reminder dispatch run",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		DispatchRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_dispatch_runs_total",
			Help:      "Total number of dispatch runs, by result",
		}, []string{"result"}),
		PendingReminders: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reminders_pending",
			Help:      "Not yet notified subscriptions seen by the last run",
		}, []string{"channel"}),
		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
