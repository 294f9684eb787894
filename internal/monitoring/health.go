// Package monitoring exposes liveness and readiness probes over HTTP.
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/solinlabs/persona_bot_platform/pkg/logger"
)

const (
	statusHealthy  = "healthy"
	statusReady    = "ready"
	statusNotReady = "not_ready"
)

// Check probes one dependency. A nil error means ready.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthMonitor answers liveness and readiness probes. Liveness only
// requires the process to respond; readiness runs the registered checks.
type HealthMonitor struct {
	checks    []Check
	timeout   time.Duration
	log       logger.Logger
	startTime time.Time
}

// Config holds configuration for the health monitor.
type Config struct {
	Checks  []Check
	Timeout time.Duration
	Logger  logger.Logger
}

// NewHealthMonitor creates a health monitor with the given checks.
func NewHealthMonitor(cfg Config) *HealthMonitor {
	if cfg.Logger == nil {
		panic("logger cannot be nil")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HealthMonitor{
		checks:    cfg.Checks,
		timeout:   cfg.Timeout,
		log:       cfg.Logger,
		startTime: time.Now(),
	}
}

// LivenessHandler reports whether the process is alive.
func (hm *HealthMonitor) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]any{
			"status":    statusHealthy,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(hm.startTime).String(),
		})
	}
}

// ReadinessHandler runs every registered check and reports per-check results.
func (hm *HealthMonitor) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), hm.timeout)
		defer cancel()

		results := make(map[string]string, len(hm.checks))
		ready := true
		for _, check := range hm.checks {
			if err := check.Probe(ctx); err != nil {
				results[check.Name] = err.Error()
				ready = false
				hm.log.Warn("Readiness check failed",
					logger.StringField("check", check.Name),
					logger.ErrorField(err))
				continue
			}
			results[check.Name] = "ok"
		}

		status := statusReady
		code := http.StatusOK
		if !ready {
			status = statusNotReady
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    results,
		})
	}
}

func writeStatus(w http.ResponseWriter, code int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
