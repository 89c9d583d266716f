package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pinger is usually a PingFunc around gotrue.Client.Health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// CheckResult represents the health of a single dependency.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResult is the top-level health report.
type HealthResult struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// Checker verifies that the auth API is reachable.
type Checker struct {
	authAPI Pinger
	timeout time.Duration
	logger  *slog.Logger
	gauge   *prometheus.GaugeVec
}

// NewChecker creates a health checker and registers its Prometheus gauge.
func NewChecker(authAPI Pinger, timeout time.Duration, logger *slog.Logger, reg prometheus.Registerer) *Checker {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gotrue",
		Name:      "health_check_up",
		Help:      "Whether a dependency is reachable. 1 = up, 0 = down.",
	}, []string{"dependency"})
	reg.MustRegister(gauge)

	return &Checker{
		authAPI: authAPI,
		timeout: timeout,
		logger:  logger.With("component", "health"),
		gauge:   gauge,
	}
}

// Readiness pings the auth API and reports its status.
func (c *Checker) Readiness(ctx context.Context) HealthResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result := HealthResult{
		Status: "up",
		Checks: make(map[string]CheckResult),
	}

	if err := c.authAPI.Ping(checkCtx); err != nil {
		c.logger.WarnContext(ctx, "auth api health check failed", "error", err)
		result.Status = "down"
		result.Checks["auth_api"] = CheckResult{Status: "down", Error: err.Error()}
		c.gauge.WithLabelValues("auth_api").Set(0)
	} else {
		result.Checks["auth_api"] = CheckResult{Status: "up"}
		c.gauge.WithLabelValues("auth_api").Set(1)
	}

	return result
}
