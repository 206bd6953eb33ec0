package monitoring

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus is the aggregate state reported by the health endpoint.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// CheckResult is one dependency's health check outcome.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthCheck probes a single dependency.
type HealthCheck func(ctx context.Context) CheckResult

// HealthChecker aggregates named dependency checks for a service.
type HealthChecker struct {
	serviceName string
	version     string
	startedAt   time.Time

	mu     sync.RWMutex
	checks map[string]HealthCheck
}

// NewHealthChecker creates a health checker for a service.
func NewHealthChecker(serviceName, version string) *HealthChecker {
	return &HealthChecker{
		serviceName: serviceName,
		version:     version,
		startedAt:   time.Now(),
		checks:      make(map[string]HealthCheck),
	}
}

// RegisterCheck adds a named dependency check.
func (hc *HealthChecker) RegisterCheck(name string, check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// RunChecks executes all checks and returns the aggregate status.
func (hc *HealthChecker) RunChecks(ctx context.Context) (HealthStatus, map[string]CheckResult) {
	hc.mu.RLock()
	checks := make(map[string]HealthCheck, len(hc.checks))
	for name, check := range hc.checks {
		checks[name] = check
	}
	hc.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	overall := StatusHealthy
	for name, check := range checks {
		result := check(ctx)
		results[name] = result
		switch result.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}
	return overall, results
}

// Handler serves the health endpoint. Unhealthy reports 503 so load
// balancers stop routing to the instance.
func (hc *HealthChecker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status, results := hc.RunChecks(ctx)
		code := http.StatusOK
		if status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"service": hc.serviceName,
			"version": hc.version,
			"status":  status,
			"uptime":  time.Since(hc.startedAt).Round(time.Second).String(),
			"checks":  results,
		})
	}
}

// DatabaseHealthCheck pings a SQL database.
func DatabaseHealthCheck(db *sql.DB) HealthCheck {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		if err := db.PingContext(ctx); err != nil {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
		}
		return CheckResult{
			Status:  StatusHealthy,
			Latency: time.Since(start).Round(time.Millisecond).String(),
		}
	}
}

// ConfigurationHealthCheck reports missing required settings as degraded.
func ConfigurationHealthCheck(missing []string) HealthCheck {
	return func(ctx context.Context) CheckResult {
		if len(missing) > 0 {
			return CheckResult{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("missing configuration: %v", missing),
			}
		}
		return CheckResult{Status: StatusHealthy}
	}
}

// HTTPServiceHealthCheck probes a dependent HTTP endpoint.
func HTTPServiceHealthCheck(name, url string) HealthCheck {
	client := &http.Client{Timeout: 3 * time.Second}
	return func(ctx context.Context) CheckResult {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return CheckResult{Status: StatusUnhealthy, Message: err.Error()}
		}
		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("%s unreachable: %v", name, err),
			}
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return CheckResult{
				Status:  StatusDegraded,
				Message: fmt.Sprintf("%s returned %d", name, resp.StatusCode),
			}
		}
		return CheckResult{
			Status:  StatusHealthy,
			Latency: time.Since(start).Round(time.Millisecond).String(),
		}
	}
}
