package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Scheduling metrics
	BookingAttempts   *prometheus.CounterVec
	BookingLatency    prometheus.Histogram
	StatusTransitions *prometheus.CounterVec
	ScheduledGauge    prometheus.Gauge
	RestoredEntities  *prometheus.CounterVec

	// Snapshot store metrics
	SnapshotOperations *prometheus.CounterVec
	SnapshotLatency    *prometheus.HistogramVec

	// Broker metrics
	EventsPublished *prometheus.CounterVec
	EventsConsumed  *prometheus.CounterVec

	// HTTP metrics
	RequestTotal    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all application metrics on reg.
// A nil reg falls back to the default registerer.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		BookingAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "booking_attempts_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		BookingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "booking_duration_seconds",
			Help:      "Time spent validating and registering a booking",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "status_transitions_total",
			Help:      "Consultation status transitions",
		}, []string{"to"}),
		ScheduledGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "scheduled_consultations",
			Help:      "Consultations currently in the scheduled state",
		}),
		RestoredEntities: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "restored_entities_total",
			Help:      "Entities loaded from storage, by result",
		}, []string{"entity", "result"}),

		SnapshotOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "snapshot_operations_total",
			Help:      "Snapshot load and save operations",
		}, []string{"operation", "status"}),
		SnapshotLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "snapshot_duration_seconds",
			Help:      "Duration of snapshot operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),

		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Consultation events handed to the broker",
		}, []string{"type", "status"}),
		EventsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "consumed_total",
			Help:      "Consultation events received by the audit worker",
		}, []string{"type", "status"}),

		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// New registers on a private registry; used by tests and tools that never expose /metrics.
func New(namespace string) *Metrics {
	return NewMetrics(prometheus.NewRegistry(), namespace)
}
