package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application level counters that are not per-route.
type Metrics struct {
	// Database
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec

	// Side channels
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec

	// Audit
	AuditWrites        prometheus.Counter
	AuditWriteFailures prometheus.Counter
	AuditLogsPurged    prometheus.Counter

	// Rate limiting
	RateLimitRejections *prometheus.CounterVec
	RateLimitErrors     *prometheus.CounterVec

	// Assets
	AssetOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics on the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWith registers on reg. Tests pass a fresh registry.
func NewMetricsWith(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		DatabaseOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"collection", "operation", "status"}),
		DatabaseLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"collection", "operation"}),

		NotificationsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Notifications delivered, by channel and kind",
		}, []string{"channel", "kind"}),
		NotificationsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Notifications that failed, by channel and kind",
		}, []string{"channel", "kind"}),

		AuditWrites: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_writes_total",
			Help:      "Audit log entries written",
		}),
		AuditWriteFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_failures_total",
			Help:      "Audit log entries that could not be written",
		}),
		AuditLogsPurged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_logs_purged_total",
			Help:      "Audit log entries removed by retention cleanup",
		}),

		RateLimitRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by a keyed rate limiter",
		}, []string{"limiter"}),
		RateLimitErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_store_errors_total",
			Help:      "Rate limit store failures (request allowed)",
		}, []string{"limiter"}),

		AssetOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_operations_total",
			Help:      "Asset store operations",
		}, []string{"operation", "status"}),
	}
}

// NewNop returns metrics bound to a private registry that is never scraped.
func NewNop() *Metrics {
	return NewMetricsWith("test", prometheus.NewRegistry())
}
