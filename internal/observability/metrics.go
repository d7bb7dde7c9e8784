package observability

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts failed Redis commands per operation.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_redis_error_rate_total",
		Help: "Failed Redis commands by operation",
	}, []string{"operation"})

	// DatabaseQueryLatency records query latency bucketed by leading SQL verb.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blogicum_database_query_latency_seconds",
		Help:    "Latency of database queries by SQL verb",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// CacheHits counts cache-aside hits by key prefix.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_cache_hits_total",
		Help: "Total cache hits by key prefix",
	}, []string{"prefix"})

	// CacheMisses counts cache-aside misses by key prefix.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_cache_misses_total",
		Help: "Total cache misses by key prefix",
	}, []string{"prefix"})

	// RateLimitRejections counts requests rejected by the rate limiter per resource.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_rate_limit_rejections_total",
		Help: "Total requests rejected by the rate limiter",
	}, []string{"resource"})

	// PostsCreated counts successfully created posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blogicum_posts_created_total",
		Help: "Total number of posts created",
	})

	// CommentsCreated counts successfully created comments.
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "blogicum_comments_created_total",
		Help: "Total number of comments created",
	})

	// ImagesUploaded counts stored post images by format.
	ImagesUploaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogicum_images_uploaded_total",
		Help: "Total number of post images stored",
	}, []string{"format"})
)

// ObserveDBQuery records one query under its leading SQL verb. The GORM
// logger hook calls this for every statement it traces.
func ObserveDBQuery(sql string, elapsed time.Duration) {
	op := "other"
	if fields := strings.Fields(sql); len(fields) > 0 {
		switch verb := strings.ToLower(fields[0]); verb {
		case "select", "insert", "update", "delete":
			op = verb
		}
	}
	DatabaseQueryLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}
