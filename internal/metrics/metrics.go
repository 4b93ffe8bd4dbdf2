package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkpulse_bookings_created_total",
		Help: "Bookings successfully created.",
	})
	BookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkpulse_booking_conflicts_total",
		Help: "Booking attempts rejected for capacity.",
	})
	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkpulse_bookings_cancelled_total",
		Help: "Bookings cancelled by users or operators.",
	})
	RecomputeRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkpulse_recompute_runs_total",
		Help: "Background demand/price/availability recompute cycles.",
	})
	RecomputeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkpulse_recompute_failures_total",
		Help: "Per-slot recompute failures degraded to last-known-good.",
	})
	AlertsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parkpulse_alerts_emitted_total",
		Help: "Operator alerts emitted by type.",
	}, []string{"type"})
	DynamicPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "parkpulse_dynamic_price",
		Help: "Current dynamic price per slot.",
	}, []string{"slot"})
)

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
