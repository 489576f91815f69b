package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studioflow",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	availabilityQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studioflow",
			Name:      "availability_queries_total",
			Help:      "Count of availability engine queries by operation.",
		},
		[]string{"operation"},
	)

	availabilityFailOpen = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studioflow",
			Name:      "availability_fail_open_total",
			Help:      "Count of availability queries answered permissively after a store error.",
		},
		[]string{"operation"},
	)

	eventsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studioflow",
			Name:      "events_created_total",
			Help:      "Count of events created by status.",
		},
		[]string{"status"},
	)

	paymentsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "studioflow",
			Name:      "payments_recorded_total",
			Help:      "Count of payments recorded.",
		},
	)

	subscriptionChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studioflow",
			Name:      "subscription_changes_total",
			Help:      "Count of subscription status transitions.",
		},
		[]string{"to"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			availabilityQueries,
			availabilityFailOpen,
			eventsCreated,
			paymentsRecorded,
			subscriptionChanges,
		)
	})
}

// IncHTTP increments the request counter for an endpoint.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncAvailabilityQuery counts an engine operation.
func IncAvailabilityQuery(operation string) {
	availabilityQueries.WithLabelValues(operation).Inc()
}

// IncFailOpen counts a fail-open fallback for an engine operation.
func IncFailOpen(operation string) {
	availabilityFailOpen.WithLabelValues(operation).Inc()
}

// IncEventCreated counts a created event by status.
func IncEventCreated(status string) {
	eventsCreated.WithLabelValues(status).Inc()
}

// IncPaymentRecorded counts a recorded payment.
func IncPaymentRecorded() {
	paymentsRecorded.Inc()
}

// IncSubscriptionChange counts a subscription transition into a status.
func IncSubscriptionChange(to string) {
	subscriptionChanges.WithLabelValues(to).Inc()
}
