// Package metrics exposes process, HTTP and dispatch counters in the
// Prometheus text format.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"rapidroad/internal/model"
	"rapidroad/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rapidroad"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	tripTransitions *prometheus.CounterVec
	bookingsCreated prometheus.Counter
	bookingStatus   *prometheus.CounterVec
	locationUpdates prometheus.Counter
}

var _ service.Notifier = (*Metrics)(nil)

// New builds a private registry preloaded with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		tripTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trip_transitions_total",
			Help:      "Committed trip transitions by resulting trip status.",
		}, []string{"status"}),
		bookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings created.",
		}),
		bookingStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_status_changes_total",
			Help:      "Booking status changes without a trip, by resulting status.",
		}, []string{"status"}),
		locationUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "driver_location_updates_total",
			Help:      "Driver GPS samples recorded.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.tripTransitions,
		m.bookingsCreated,
		m.bookingStatus,
		m.locationUpdates,
	)
	return m
}

// Handler serves the registry for GET /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished HTTP request. route is the matched
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// WatchSockets exports one gauge per hub group, read on every scrape.
func (m *Metrics) WatchSockets(counts map[string]func() int) {
	for group, count := range counts {
		count := count // per-iteration copy; go directive predates Go 1.22 loopvar semantics
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "ws_connections",
			Help:        "Open websocket connections by group.",
			ConstLabels: prometheus.Labels{"group": group},
		}, func() float64 { return float64(count()) }))
	}
}

func (m *Metrics) TripUpdated(_ context.Context, _ *model.Booking, trip *model.Trip) {
	m.tripTransitions.WithLabelValues(string(trip.Status)).Inc()
}

func (m *Metrics) BookingCreated(context.Context, *model.Booking, *model.BookingLocation) {
	m.bookingsCreated.Inc()
}

func (m *Metrics) BookingStatusChanged(_ context.Context, booking *model.Booking) {
	m.bookingStatus.WithLabelValues(string(booking.Status)).Inc()
}

func (m *Metrics) DriverLocationUpdated(context.Context, *model.DriverLocation) {
	m.locationUpdates.Inc()
}
