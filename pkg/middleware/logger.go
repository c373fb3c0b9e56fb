package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "labelstate",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern and status code",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "pattern", "status"})

	responseBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labelstate",
		Subsystem: "http",
		Name:      "response_bytes_total",
		Help:      "Bytes written in HTTP response bodies",
	}, []string{"pattern"})
)

// statusRecorder captures the status code and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Logger returns middleware that logs each request and records latency
// metrics. Server errors log at error level, client errors at warn.
// Metrics are labelled with the matched route pattern, so a handler mux
// must sit inside this middleware.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			elapsed := time.Since(start)

			pattern := r.Pattern
			if pattern == "" {
				pattern = "unmatched"
			}
			requestDuration.
				WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).
				Observe(elapsed.Seconds())
			responseBytes.WithLabelValues(pattern).Add(float64(rec.bytes))

			level := slog.LevelInfo
			switch {
			case rec.status >= 500:
				level = slog.LevelError
			case rec.status >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(
				r.Context(), level, "request",
				slog.String("method", r.Method),
				slog.String("uri", r.URL.RequestURI()),
				slog.Int("status", rec.status),
				slog.Int("bytes", rec.bytes),
				slog.String("addr", r.RemoteAddr),
				slog.String("request_id", RequestIDFrom(r.Context())),
				slog.Duration("duration", elapsed),
			)
		})
	}
}
