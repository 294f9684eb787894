// Package metrics provides Prometheus metrics collection for the platform.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

const subsystem = "persona_bot"

// Metrics bundles the Prometheus registry and the collectors used by the
// conversation pipeline.
type Metrics struct {
	reg *prometheus.Registry

	TotalHTTPRequestsCounter prometheus.Counter
	HTTPRequestsCounters     map[int]prometheus.Counter
	httpCountersMu           sync.Mutex
	HTTPDurationHistogram    prometheus.Histogram

	TurnsFilteredCounter    *prometheus.CounterVec
	ArchiveWritesCounter    prometheus.Counter
	ArchiveFailuresCounter  prometheus.Counter
	MemoriesPromotedCounter prometheus.Counter

	log logger.Logger
}

// NewMetrics creates a Metrics instance with all collectors registered.
func NewMetrics(l logger.Logger) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		log: l,
	}

	m.TotalHTTPRequestsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_http_requests",
		Help:      "Total HTTP requests",
	})
	m.reg.MustRegister(m.TotalHTTPRequestsCounter)
	m.HTTPRequestsCounters = make(map[int]prometheus.Counter)

	m.HTTPDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{0.1, 0.3, 0.5, 0.7, 1.0, 3.0, 5.0, 7.0, 10.0},
	})
	m.reg.MustRegister(m.HTTPDurationHistogram)

	m.TurnsFilteredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "turns_filtered_total",
		Help:      "Conversation turns removed by the history filter, by reason",
	}, []string{"reason"})
	m.reg.MustRegister(m.TurnsFilteredCounter)

	m.ArchiveWritesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "archive_writes_total",
		Help:      "Filtered-content archive records written",
	})
	m.reg.MustRegister(m.ArchiveWritesCounter)

	m.ArchiveFailuresCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "archive_write_failures_total",
		Help:      "Filtered-content archive writes that failed",
	})
	m.reg.MustRegister(m.ArchiveFailuresCounter)

	m.MemoriesPromotedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "memories_promoted_total",
		Help:      "User utterances promoted to long-term memory",
	})
	m.reg.MustRegister(m.MemoriesPromotedCounter)

	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Listen starts a dedicated metrics HTTP server on the given port and blocks
// until ctx is cancelled.
func (m *Metrics) Listen(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/", http.NotFoundHandler())
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		m.log.Info("Metrics listener started", logger.IntField("port", port))
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		m.log.Info("Stopping metrics listener")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// IncrementHTTPResponseCounter increments the counter for the given HTTP status code.
func (m *Metrics) IncrementHTTPResponseCounter(code int) {
	m.httpCountersMu.Lock()
	defer m.httpCountersMu.Unlock()
	if _, ok := m.HTTPRequestsCounters[code]; !ok {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      fmt.Sprintf("total_%d_http_responses", code),
			Help:      fmt.Sprintf("Total %s HTTP responses returned", http.StatusText(code)),
		})
		m.reg.MustRegister(c)
		m.HTTPRequestsCounters[code] = c
	}
	m.HTTPRequestsCounters[code].Inc()
}

// HTTPMiddleware returns a chi-compatible middleware that tracks HTTP metrics.
func (m *Metrics) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.TotalHTTPRequestsCounter.Inc()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			m.HTTPDurationHistogram.Observe(time.Since(start).Seconds())
			m.IncrementHTTPResponseCounter(rw.statusCode)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
