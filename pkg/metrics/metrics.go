// Package metrics registers the relay's Prometheus instruments. They are
// package-level so every component shares one registration.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherbot_queries_total",
			Help: "Weather queries relayed to the backend, by platform and outcome",
		},
		[]string{"platform", "outcome"},
	)

	backendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherbot_backend_request_duration_seconds",
			Help:    "Backend weather request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherbot_notifications_total",
			Help: "WhatsApp notifications consumed from the poll queue, by result",
		},
		[]string{"result"},
	)

	sendFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherbot_send_failures_total",
			Help: "Outbound platform sends that failed, by channel",
		},
		[]string{"channel"},
	)
)

// Notification result labels.
const (
	NotificationProcessed = "processed"
	NotificationIgnored   = "ignored"
	NotificationFaulted   = "faulted"
)

// RecordQuery counts one relayed query and its backend latency.
func RecordQuery(platform string, outcome string, duration time.Duration) {
	queriesTotal.WithLabelValues(platform, outcome).Inc()
	backendLatency.WithLabelValues(platform).Observe(duration.Seconds())
}

// RecordNotification counts one consumed poll notification.
func RecordNotification(result string) {
	notificationsTotal.WithLabelValues(result).Inc()
}

// RecordSendFailure counts one failed outbound send.
func RecordSendFailure(channel string) {
	sendFailuresTotal.WithLabelValues(channel).Inc()
}
