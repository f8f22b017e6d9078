package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	geocodeRequests       *prometheus.CounterVec
	waypointsMaterialized *prometheus.CounterVec
	reorders              *prometheus.CounterVec
	tripsCreated          prometheus.Counter
	lockWait              prometheus.Histogram
}

// NewMetrics registers the pipeline collectors with reg. Pass
// prometheus.DefaultRegisterer in the server and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		geocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geocode_requests_total",
			Help: "Geocoding provider calls by mode and outcome",
		}, []string{"mode", "outcome"}),
		waypointsMaterialized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoints_materialized_total",
			Help: "Waypoints written by the materializer by result",
		}, []string{"result"}),
		reorders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_reorders_total",
			Help: "Waypoint reorder requests by outcome",
		}, []string{"outcome"}),
		tripsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trips_created_total",
			Help: "The total number of trips created",
		}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trip_lock_wait_seconds",
			Help:    "Time spent waiting for a per-trip write lock",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	metrics.register(reg)
	return metrics
}

func (m *Metrics) register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.geocodeRequests,
		m.waypointsMaterialized,
		m.reorders,
		m.tripsCreated,
		m.lockWait,
	)
}

func (m *Metrics) ObserveGeocode(mode, outcome string) {
	if m == nil {
		return
	}
	m.geocodeRequests.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) ObserveWaypoint(result string) {
	if m == nil {
		return
	}
	m.waypointsMaterialized.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveReorder(outcome string) {
	if m == nil {
		return
	}
	m.reorders.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementTripsCreated() {
	if m == nil {
		return
	}
	m.tripsCreated.Inc()
}

func (m *Metrics) ObserveLockWait(seconds float64) {
	if m == nil {
		return
	}
	m.lockWait.Observe(seconds)
}
