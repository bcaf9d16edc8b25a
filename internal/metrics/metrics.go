package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "bookings_created_total",
			Help:      "Successfully created bookings.",
		},
	)

	bookingsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "bookings_cancelled_total",
			Help:      "Successfully cancelled bookings.",
		},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected because the room was taken.",
		},
	)

	notificationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "notification_failures_total",
			Help:      "Confirmation deliveries that failed and were discarded.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingsCreated,
			bookingsCancelled,
			bookingConflicts,
			notificationFailures,
			httpRequests,
		)
	})
}

func IncBookingCreated()      { bookingsCreated.Inc() }
func IncBookingCancelled()    { bookingsCancelled.Inc() }
func IncBookingConflict()     { bookingConflicts.Inc() }
func IncNotificationFailure() { notificationFailures.Inc() }

// IncHTTP increments the request counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
