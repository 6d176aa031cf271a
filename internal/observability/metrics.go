package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IdeaMutations counts applied idea and comment mutations by operation.
	IdeaMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideon_idea_mutations_total",
		Help: "Total number of applied idea mutations by operation",
	}, []string{"operation"})

	// MutationNoops counts mutations that hit a missing idea or comment.
	MutationNoops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideon_mutation_noops_total",
		Help: "Mutations ignored because the target no longer exists",
	}, []string{"operation"})

	// FeedEvaluations counts feed evaluations by scope, sort and cache outcome.
	FeedEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideon_feed_evaluations_total",
		Help: "Total number of feed evaluations",
	}, []string{"scope", "sort", "cache"})

	// FeedLatency records feed pipeline latency.
	FeedLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ideon_feed_latency_seconds",
		Help:    "Feed pipeline latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// StorageErrors counts persistence failures by operation.
	StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideon_storage_errors_total",
		Help: "Total number of persistence failures by operation",
	}, []string{"operation"})

	// StorageFlushLatency records how long a snapshot flush takes.
	StorageFlushLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ideon_storage_flush_latency_seconds",
		Help:    "Snapshot flush latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"driver"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideon_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// EnhanceRequests counts AI enhancement calls by outcome.
	EnhanceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideon_enhance_requests_total",
		Help: "AI description enhancement calls by outcome",
	}, []string{"outcome"})

	// AuthEvents counts auth flow outcomes.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ideon_auth_events_total",
		Help: "Auth flow outcomes by flow and result",
	}, []string{"flow", "result"})
)

// TrackFlush returns a function that records flush latency when called.
func TrackFlush(driver string) func() {
	start := time.Now()
	return func() {
		StorageFlushLatency.WithLabelValues(driver).Observe(time.Since(start).Seconds())
	}
}
