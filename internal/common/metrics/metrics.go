package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "room_watcher"

	NotifierSubsystem = "notifier"
	SessionSubsystem  = "session"
)

// Общие метрики для всех сервисов.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)
)

// Метрики ядра уведомлений.
var (
	SnapshotsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: NotifierSubsystem,
			Name:      "snapshots_processed_total",
			Help:      "Total number of room snapshots processed",
		},
		[]string{"source", "status"},
	)

	MatchesFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: NotifierSubsystem,
			Name:      "matches_found_total",
			Help:      "Total number of criteria matches found",
		},
		[]string{"criteria_type"},
	)

	MatchesSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: NotifierSubsystem,
			Name:      "matches_suppressed_total",
			Help:      "Matches suppressed before dispatch by reason",
		},
		[]string{"reason"},
	)

	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: NotifierSubsystem,
			Name:      "notifications_dispatched_total",
			Help:      "Delivery attempts by channel and status",
		},
		[]string{"channel", "status"},
	)

	ActiveWatchers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: NotifierSubsystem,
			Name:      "active_watchers_count",
			Help:      "Number of active watchers by year",
		},
		[]string{"year"},
	)

	SnapshotProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: NotifierSubsystem,
			Name:      "snapshot_processing_duration_seconds",
			Help:      "Snapshot processing duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)
)

// Метрики клиентской сессии.
var (
	SessionRechecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SessionSubsystem,
			Name:      "rechecks_total",
			Help:      "Total number of session alert rechecks",
		},
		[]string{"trigger"},
	)

	SessionAlarmsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SessionSubsystem,
			Name:      "alarms_started_total",
			Help:      "Total number of alarm activations",
		},
	)
)

func RecordHTTPRequest(service, method, endpoint string, statusCode int, duration time.Duration) {
	status := "success"
	if statusCode >= 400 {
		status = "error"
	}

	HTTPRequestsTotal.WithLabelValues(service, method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(service, method, endpoint).Observe(duration.Seconds())
}

func RecordSnapshot(source, status string, duration time.Duration) {
	SnapshotsProcessed.WithLabelValues(source, status).Inc()
	SnapshotProcessingDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func RecordDispatch(channel, status string) {
	NotificationsDispatched.WithLabelValues(channel, status).Inc()
}

func RecordSuppression(reason string) {
	MatchesSuppressed.WithLabelValues(reason).Inc()
}
