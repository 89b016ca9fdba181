// metrics.go — Prometheus-метрики HTTP: kb_http_requests_total, kb_http_request_duration_seconds.
package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kb_http_requests_total",
			Help: "Количество HTTP-запросов",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kb_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// WithMetrics считает запросы и их длительность по нормализованному пути.
func WithMetrics(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		h.ServeHTTP(mw, r)

		path := NormalizePath(r.URL.Path)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(mw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// NormalizePath заменяет id карточек и пути файлов шаблонами, чтобы не раздувать кардинальность.
// /api/cards/3f2c... → /api/cards/{id}, /files/7/170000.pdf → /files/{path}
func NormalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/files/"):
		return "/files/{path}"
	case strings.HasPrefix(path, "/api/cards/"):
		rest := strings.TrimPrefix(path, "/api/cards/")
		if rest == "ws" || rest == "events" {
			return path
		}
		return "/api/cards/{id}"
	}
	return path
}
