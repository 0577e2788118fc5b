// Package telemetry provides low-overhead request instrumentation: RED
// metrics for Prometheus and a log line for requests crossing the slow
// threshold. Sampling whole traces is out of scope for a service this
// small; the metrics endpoint plus slow logs cover what operators need.
package telemetry

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cipherrelay/pkg/logger"
)

var slowThreshold = 200 * time.Millisecond

var (
	reqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cipherrelay_http_requests_total",
		Help: "HTTP requests by path, method and status.",
	}, []string{"path", "method", "status"})
	reqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cipherrelay_http_request_seconds",
		Help:    "HTTP request latency by path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
)

// statusRecorder captures the response status. It passes Hijack through so
// the websocket upgrade on /ws keeps working behind the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

// Middleware records request count and latency and logs slow requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		dur := time.Since(start)

		reqTotal.WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rec.status)).Inc()
		reqDuration.WithLabelValues(r.URL.Path).Observe(dur.Seconds())
		if dur > slowThreshold {
			logger.Warn("slow_request", "path", r.URL.Path, "method", r.Method, "status", rec.status, "duration_ms", dur.Milliseconds())
		}
	})
}
