package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// HealthCheck represents the health status of the server
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Slot      string                 `json:"slot,omitempty"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// DatabaseProbe is implemented by postgres.Repository.
type DatabaseProbe interface {
	Ping(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int64, bool, error)
}

// HealthChecker runs the database and migration checks behind /health and
// /readyz.
type HealthChecker struct {
	db           DatabaseProbe
	version      string
	gitCommit    string
	checkTimeout time.Duration
}

func NewHealthChecker(db DatabaseProbe, version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		db:           db,
		version:      version,
		gitCommit:    gitCommit,
		checkTimeout: 2 * time.Second,
	}
}

// Health returns a comprehensive health check handler
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
			return
		default:
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := h.run(ctx)
		overallStatus, statusCode := summarize(checks)

		slot := os.Getenv("DEPLOYMENT_SLOT")
		if slot == "" {
			slot = os.Getenv("SLOT")
		}

		writeJSON(w, r, statusCode, HealthCheck{
			Status:    overallStatus,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Slot:      slot,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Readyz reports ready only when the database answers and the schema is
// migrated.
func (h *HealthChecker) Readyz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if _, code := summarize(h.run(ctx)); code != http.StatusOK {
			respondHealth(w, r, code, "not_ready")
			return
		}
		respondHealth(w, r, http.StatusOK, "ready")
	})
}

func (h *HealthChecker) run(ctx context.Context) map[string]CheckResult {
	return map[string]CheckResult{
		"database":   h.checkDatabase(ctx),
		"migrations": h.checkMigrations(ctx),
	}
}

func summarize(checks map[string]CheckResult) (string, int) {
	status := "healthy"
	for _, check := range checks {
		if check.Status == "fail" {
			return "unhealthy", http.StatusServiceUnavailable
		}
		if check.Status == "warn" {
			status = "degraded"
		}
	}
	return status, http.StatusOK
}

// checkDatabase verifies PostgreSQL is reachable
func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{
			Status:  "fail",
			Message: "Database not initialized",
			Details: map[string]any{
				"remediation": "Check that DATABASE_URL is set correctly and PostgreSQL is running",
			},
		}
	}

	// Per-check timeout so one slow check cannot starve the other.
	dbCtx, cancel := context.WithTimeout(ctx, h.checkTimeout)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(dbCtx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		message, remediation := describeDatabaseError(dbCtx, err)
		return CheckResult{
			Status:    "fail",
			Message:   message,
			LatencyMs: latency,
			Details: map[string]any{
				"error":       err.Error(),
				"remediation": remediation,
			},
		}
	}

	return CheckResult{
		Status:    "pass",
		Message:   "PostgreSQL connection successful",
		LatencyMs: latency,
	}
}

func describeDatabaseError(ctx context.Context, err error) (string, string) {
	msg := err.Error()
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return "Database ping timed out", "Check PostgreSQL performance, network latency, or increase timeout"
	case strings.Contains(msg, "connection refused"):
		return "Database connection refused", "Verify PostgreSQL is running and DATABASE_URL host/port are correct"
	case strings.Contains(msg, "no such host"), strings.Contains(msg, "dial tcp"):
		return "Cannot reach database host", "Check DATABASE_URL hostname and network connectivity"
	case strings.Contains(msg, "authentication failed"), strings.Contains(msg, "password"):
		return "Database authentication failed", "Verify DATABASE_URL username and password are correct"
	case strings.Contains(msg, "database") && strings.Contains(msg, "does not exist"):
		return "Database does not exist", "Create database or check DATABASE_URL database name"
	default:
		return "Database query failed", "Check DATABASE_URL environment variable and PostgreSQL service status"
	}
}

// checkMigrations verifies the schema is migrated and not dirty
func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: "fail", Message: "Database not initialized"}
	}

	migCtx, cancel := context.WithTimeout(ctx, h.checkTimeout)
	defer cancel()

	start := time.Now()
	version, dirty, err := h.db.SchemaVersion(migCtx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		message := "Failed to query migration version"
		remediation := "Verify migrations have been applied and schema_migrations table exists"
		if strings.Contains(err.Error(), "does not exist") {
			message = "Migrations table not found"
			remediation = "Run database migrations first: server migrate up"
		}
		return CheckResult{
			Status:    "fail",
			Message:   message,
			LatencyMs: latency,
			Details: map[string]any{
				"error":       err.Error(),
				"remediation": remediation,
			},
		}
	}

	if dirty {
		return CheckResult{
			Status:    "fail",
			Message:   "Database in dirty migration state - manual intervention required",
			LatencyMs: latency,
			Details: map[string]any{
				"version": version,
				"dirty":   true,
				"action":  "Do NOT run new migrations until this is resolved",
			},
		}
	}

	return CheckResult{
		Status:    "pass",
		Message:   fmt.Sprintf("Migrations applied successfully (version %d)", version),
		LatencyMs: latency,
		Details: map[string]any{
			"version": version,
			"dirty":   false,
		},
	}
}

// Healthz returns a lightweight liveness response
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondHealth(w, r, http.StatusOK, "ok")
	})
}

type healthResponse struct {
	Status string `json:"status"`
}

func respondHealth(w http.ResponseWriter, r *http.Request, status int, value string) {
	writeJSON(w, r, status, healthResponse{Status: value})
}
