package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "coworking"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	remoteRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Calls to the coworking API by endpoint and result.",
		},
		[]string{"endpoint", "result"},
	)

	pollTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_ticks_total",
			Help:      "Seat refresh ticks by result (ok, partial, skipped).",
		},
		[]string{"result"},
	)

	bookingSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_submissions_total",
			Help:      "Booking form submissions by result (ok, invalid, rejected).",
		},
		[]string{"result"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seat_status_changes_total",
			Help:      "Observed effective seat status transitions by target status.",
		},
		[]string{"to"},
	)

	seats = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seats",
			Help:      "Seats by effective status after the last refresh.",
		},
		[]string{"status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, remoteRequests, pollTicks, bookingSubmissions, statusChanges, seats)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncRemote(endpoint, result string) {
	remoteRequests.WithLabelValues(endpoint, result).Inc()
}

func IncPoll(result string) {
	pollTicks.WithLabelValues(result).Inc()
}

func IncSubmission(result string) {
	bookingSubmissions.WithLabelValues(result).Inc()
}

func IncStatusChange(to string) {
	statusChanges.WithLabelValues(to).Inc()
}

// SetSeatCounts replaces the per-status seat gauge.
func SetSeatCounts(counts map[string]int) {
	seats.Reset()
	for status, n := range counts {
		seats.WithLabelValues(status).Set(float64(n))
	}
}
