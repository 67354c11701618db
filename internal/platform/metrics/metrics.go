package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the workflow engine.
type Metrics struct {
	TransitionsCommitted *prometheus.CounterVec
	TransitionsDenied    prometheus.Counter
	TransitionsInvalid   prometheus.Counter
	TransitionConflicts  prometheus.Counter
	NotificationsSent    *prometheus.CounterVec
	NotificationsFailed  *prometheus.CounterVec
	DispatchQueueDepth   prometheus.Gauge
	DispatchRetries      prometheus.Counter
	RelayPublished       prometheus.Counter
	RelayPublishFailures prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TransitionsCommitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chrona_workflow_transitions_committed_total",
			Help: "Total number of committed workflow transitions",
		}, []string{"kind", "to_status"}),
		TransitionsDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chrona_workflow_transitions_denied_total",
			Help: "Total number of transitions denied by the authorization policy",
		}),
		TransitionsInvalid: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chrona_workflow_transitions_invalid_total",
			Help: "Total number of structurally illegal transition attempts",
		}),
		TransitionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chrona_workflow_transition_conflicts_total",
			Help: "Total number of transitions lost to optimistic concurrency",
		}),
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chrona_notifications_sent_total",
			Help: "Total number of notifications delivered, by channel",
		}, []string{"channel"}),
		NotificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chrona_notifications_failed_total",
			Help: "Total number of notifications that exhausted delivery retries, by channel",
		}, []string{"channel"}),
		DispatchQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "chrona_dispatch_queue_depth",
			Help: "Current number of queued dispatch tasks",
		}),
		DispatchRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chrona_dispatch_retries_total",
			Help: "Total number of notification delivery retries",
		}),
		RelayPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chrona_audit_relay_published_total",
			Help: "Total number of workflow log entries published to Kafka",
		}),
		RelayPublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chrona_audit_relay_publish_failures_total",
			Help: "Total number of failed Kafka publishes from the audit relay",
		}),
	}
}
