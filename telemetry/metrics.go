// Package telemetry provides Prometheus metrics, OpenTelemetry spans and
// correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CommandsTotal       *prometheus.CounterVec
	CommandsUnmatched   prometheus.Counter
	RepliesSuppressed   prometheus.Counter
	TopicEvents         *prometheus.CounterVec
	SessionsOpened      prometheus.Counter
	SessionsClosed      prometheus.Counter
	PersistenceFailures *prometheus.CounterVec

	// Histograms (seconds)
	PersistenceDuration *prometheus.HistogramVec

	// Gauges
	SessionOpenGauge      prometheus.Gauge // 1=active,0=idle
	PersistenceQueueGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "metasepia_commands_total", Help: "Commands dispatched to a handler"}, []string{"command"})
		CommandsUnmatched = promauto.NewCounter(prometheus.CounterOpts{Name: "metasepia_commands_unmatched_total", Help: "Prefixed messages that matched no command"})
		RepliesSuppressed = promauto.NewCounter(prometheus.CounterOpts{Name: "metasepia_replies_suppressed_total", Help: "Replies dropped because the destination is silenced"})
		TopicEvents = promauto.NewCounterVec(prometheus.CounterOpts{Name: "metasepia_topic_events_total", Help: "Topic changes received"}, []string{"source"})
		SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{Name: "metasepia_sessions_opened_total", Help: "Sessions successfully stored"})
		SessionsClosed = promauto.NewCounter(prometheus.CounterOpts{Name: "metasepia_sessions_closed_total", Help: "Session close calls successfully stored"})
		PersistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{Name: "metasepia_persistence_failures_total", Help: "Failed persistence calls"}, []string{"op"})
		PersistenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "metasepia_persistence_duration_seconds", Help: "Persistence call duration seconds", Buckets: prometheus.DefBuckets}, []string{"op"})
		SessionOpenGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "metasepia_session_open", Help: "Tracker state active=1 idle=0"})
		PersistenceQueueGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "metasepia_persistence_queue_depth", Help: "Persistence calls waiting for the worker"})
	})
}

// RecordCommand counts a dispatched command.
func RecordCommand(name string) {
	if CommandsTotal != nil {
		CommandsTotal.WithLabelValues(name).Inc()
	}
}

// RecordUnmatchedCommand counts a prefixed message that matched nothing.
func RecordUnmatchedCommand() {
	if CommandsUnmatched != nil {
		CommandsUnmatched.Inc()
	}
}

// RecordSuppressedReply counts a reply dropped for a silent destination.
func RecordSuppressedReply() {
	if RepliesSuppressed != nil {
		RepliesSuppressed.Inc()
	}
}

// RecordTopicEvent counts a topic change from source ("irc" or "helix").
func RecordTopicEvent(source string) {
	if TopicEvents != nil {
		TopicEvents.WithLabelValues(source).Inc()
	}
}

// RecordSessionOpened counts a stored session start.
func RecordSessionOpened() {
	if SessionsOpened != nil {
		SessionsOpened.Inc()
	}
}

// RecordSessionClosed counts a stored session close.
func RecordSessionClosed() {
	if SessionsClosed != nil {
		SessionsClosed.Inc()
	}
}

// SetSessionOpen sets the tracker state gauge.
func SetSessionOpen(open bool) {
	if SessionOpenGauge != nil {
		if open {
			SessionOpenGauge.Set(1)
		} else {
			SessionOpenGauge.Set(0)
		}
	}
}

// SetPersistenceQueueDepth records how many persistence calls are waiting.
func SetPersistenceQueueDepth(n int) {
	if PersistenceQueueGauge != nil {
		PersistenceQueueGauge.Set(float64(n))
	}
}

// ObservePersistence records the duration of a persistence call and counts
// failures.
func ObservePersistence(op string, d time.Duration, err error) {
	if PersistenceDuration != nil {
		PersistenceDuration.WithLabelValues(op).Observe(d.Seconds())
	}
	if err != nil && PersistenceFailures != nil {
		PersistenceFailures.WithLabelValues(op).Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
