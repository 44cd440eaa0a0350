package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const namespace = "formrpc"

// CodeOK labels successful procedure calls.
const CodeOK = "OK"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	procedureCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "procedure",
			Name:      "calls_total",
			Help:      "Procedure calls by outcome code.",
		},
		[]string{"procedure", "code"},
	)
	procedureDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "procedure",
			Name:      "call_duration_seconds",
			Help:      "Procedure call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"procedure", "code"},
	)
	actionSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "action",
			Name:      "submissions_total",
			Help:      "Safe action submissions by status.",
		},
		[]string{"action", "status"},
	)
	grpcCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grpc",
			Name:      "calls_total",
			Help:      "gRPC calls by method and status code.",
		},
		[]string{"method", "code"},
	)
)

// RegisterMetrics registers every collector on the default registry once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, procedureCalls, procedureDuration, actionSubmissions, grpcCalls)
	})
}

// Handler exposes the default registry in Prometheus format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordProcedure(procedure, code string, duration time.Duration) {
	RegisterMetrics()
	procedureCalls.WithLabelValues(procedure, code).Inc()
	procedureDuration.WithLabelValues(procedure, code).Observe(duration.Seconds())
}

func RecordAction(action string, status int) {
	RegisterMetrics()
	actionSubmissions.WithLabelValues(action, strconv.Itoa(status)).Inc()
}

// RequestMetricsMiddleware records HTTP metrics by matched route.
func RequestMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// UnaryServerInterceptor records gRPC call outcomes.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		RegisterMetrics()
		grpcCalls.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}
