package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the notification system.
type Metrics struct {
	// NotificationsSentTotal is the total number of notifications sent.
	NotificationsSentTotal *prometheus.CounterVec

	// NotificationsQueueSize is the current number of pending notifications.
	NotificationsQueueSize prometheus.Gauge

	// NotificationSendDuration is the time to send a notification.
	NotificationSendDuration prometheus.Histogram

	// NotificationsCleanedUp is the total number of notifications cleaned up.
	NotificationsCleanedUp prometheus.Counter

	// NotificationRetries is the total number of retry attempts.
	NotificationRetries prometheus.Counter

	// RateLimitWaits is the total number of rate limit waits.
	RateLimitWaits prometheus.Counter
}

// NewMetrics creates and registers Prometheus metrics for notifications.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		NotificationsSentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_sent_total",
				Help:      "Total number of notifications sent",
			},
			[]string{"status", "kind"},
		),

		NotificationsQueueSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "notifications_queue_size",
				Help:      "Current number of pending notifications",
			},
		),

		NotificationSendDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "notification_send_duration_seconds",
				Help:      "Time to send a notification",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5},
			},
		),

		NotificationsCleanedUp: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_cleaned_up_total",
				Help:      "Total number of notifications cleaned up",
			},
		),

		NotificationRetries: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notification_retries_total",
				Help:      "Total number of retry attempts",
			},
		),

		RateLimitWaits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_waits_total",
				Help:      "Total number of rate limit waits",
			},
		),
	}
}

// IncSent increments the sent counter for a given status and kind.
func (m *Metrics) IncSent(status string, kind Kind) {
	m.NotificationsSentTotal.WithLabelValues(status, string(kind)).Inc()
}

// SetQueueSize sets the current queue size.
func (m *Metrics) SetQueueSize(size int64) {
	m.NotificationsQueueSize.Set(float64(size))
}

// ObserveSendDuration records the time taken to send a notification.
func (m *Metrics) ObserveSendDuration(seconds float64) {
	m.NotificationSendDuration.Observe(seconds)
}

// IncCleanedUp increments the cleanup counter.
func (m *Metrics) IncCleanedUp(count int64) {
	m.NotificationsCleanedUp.Add(float64(count))
}

// IncRetries increments the retry counter.
func (m *Metrics) IncRetries() {
	m.NotificationRetries.Inc()
}

// IncRateLimitWaits increments the rate limit wait counter.
func (m *Metrics) IncRateLimitWaits() {
	m.RateLimitWaits.Inc()
}
