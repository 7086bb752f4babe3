package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "venue"

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Count of bookings written.",
		},
	)

	bookingsDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_denied_total",
			Help:      "Count of booking attempts denied, by reason.",
		},
		[]string{"reason"},
	)

	bookingsCanceled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_canceled_total",
			Help:      "Count of bookings canceled by their owners.",
		},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Count of booking emails handled by the notify worker, by kind and result.",
		},
		[]string{"kind", "result"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "route", "status"},
	)
)

// Register registers collectors with the default registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingsCreated, bookingsDenied, bookingsCanceled, notificationsSent, requestDuration)
	})
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncBookingDenied(reason string) {
	bookingsDenied.WithLabelValues(reason).Inc()
}

func IncBookingCanceled() {
	bookingsCanceled.Inc()
}

// IncNotification records one email attempt; result is "sent", "failed" or "skipped".
func IncNotification(kind, result string) {
	notificationsSent.WithLabelValues(kind, result).Inc()
}

func ObserveRequest(service, method, route, status string, seconds float64) {
	requestDuration.WithLabelValues(service, method, route, status).Observe(seconds)
}
