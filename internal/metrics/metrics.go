package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the application metrics
type Metrics struct {
	// HTTP and RPC request metrics
	HTTPRequestTotal   *prometheus.CounterVec
	RPCRequestTotal    *prometheus.CounterVec
	RPCRequestDuration *prometheus.HistogramVec

	// Feed metrics
	FeedComposeDuration *prometheus.HistogramVec
	FeedEntries         *prometheus.HistogramVec
	FeedCandidateCache  *prometheus.CounterVec

	// Engagement metrics
	LikeToggleTotal   *prometheus.CounterVec
	CommentAddedTotal prometheus.Counter

	// Story metrics
	StoriesSweptTotal prometheus.Counter
	StoryViewTotal    *prometheus.CounterVec

	// Collaborator metrics
	MediaUploadTotal  *prometheus.CounterVec
	EventPublishTotal *prometheus.CounterVec
}

var (
	globalMetrics *Metrics
	metricsMutex  sync.Mutex
)

// Get returns the process wide Metrics, creating and registering it on first use
func Get() *Metrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	if globalMetrics != nil {
		return globalMetrics
	}

	m := &Metrics{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hush_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		RPCRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hush_rpc_requests_total",
			Help: "Total number of JSON-RPC calls",
		}, []string{"method", "status"}),

		RPCRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hush_rpc_request_duration_seconds",
			Help:    "JSON-RPC call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),

		FeedComposeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hush_feed_compose_duration_seconds",
			Help:    "Time to build a feed including candidate fetch",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),

		FeedEntries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hush_feed_entries",
			Help:    "Number of entries returned per feed",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"strategy"}),

		FeedCandidateCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hush_feed_candidate_cache_total",
			Help: "Candidate window cache lookups",
		}, []string{"result"}),

		LikeToggleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hush_like_toggles_total",
			Help: "Like state transitions applied",
		}, []string{"direction"}),

		CommentAddedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hush_comments_added_total",
			Help: "Comments appended to posts",
		}),

		StoriesSweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hush_stories_swept_total",
			Help: "Stories marked inactive by the expiry sweep",
		}),

		StoryViewTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hush_story_views_total",
			Help: "Story view calls by outcome",
		}, []string{"result"}),

		MediaUploadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hush_media_uploads_total",
			Help: "Image uploads by backend",
		}, []string{"backend", "status"}),

		EventPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hush_event_publish_total",
			Help: "Total number of event publish operations",
		}, []string{"event_type", "status"}),
	}

	m.HTTPRequestTotal = registerOrGet(m.HTTPRequestTotal).(*prometheus.CounterVec)
	m.RPCRequestTotal = registerOrGet(m.RPCRequestTotal).(*prometheus.CounterVec)
	m.RPCRequestDuration = registerOrGet(m.RPCRequestDuration).(*prometheus.HistogramVec)
	m.FeedComposeDuration = registerOrGet(m.FeedComposeDuration).(*prometheus.HistogramVec)
	m.FeedEntries = registerOrGet(m.FeedEntries).(*prometheus.HistogramVec)
	m.FeedCandidateCache = registerOrGet(m.FeedCandidateCache).(*prometheus.CounterVec)
	m.LikeToggleTotal = registerOrGet(m.LikeToggleTotal).(*prometheus.CounterVec)
	m.CommentAddedTotal = registerOrGet(m.CommentAddedTotal).(prometheus.Counter)
	m.StoriesSweptTotal = registerOrGet(m.StoriesSweptTotal).(prometheus.Counter)
	m.StoryViewTotal = registerOrGet(m.StoryViewTotal).(*prometheus.CounterVec)
	m.MediaUploadTotal = registerOrGet(m.MediaUploadTotal).(*prometheus.CounterVec)
	m.EventPublishTotal = registerOrGet(m.EventPublishTotal).(*prometheus.CounterVec)

	globalMetrics = m
	return m
}

// Status maps an error to the status label used by the counters
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// registerOrGet registers c with the default registry, returning the existing collector on a clash
func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}
