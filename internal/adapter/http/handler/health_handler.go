package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/iho/loanledger/internal/adapter/http/dto"
)

const defaultReadinessTimeout = 5 * time.Second

// HealthCheck probes one dependency of the ledger.
type HealthCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// PostgresCheck pings the ledger database.
func PostgresCheck(pool *pgxpool.Pool) HealthCheck {
	return HealthCheck{Name: "postgres", Probe: pool.Ping}
}

// RedisCheck pings the idempotency, cache and job lock store.
func RedisCheck(client *redis.Client) HealthCheck {
	return HealthCheck{Name: "redis", Probe: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}}
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	checks  []HealthCheck
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler running checks in order.
func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: defaultReadinessTimeout}
}

// Liveness returns 200 if the service is alive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// Readiness returns 200 when every dependency answers and 503 otherwise.
// Each dependency is reported so operators see which one failed.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	timeout := h.timeout
	if timeout <= 0 {
		timeout = defaultReadinessTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	resp := dto.HealthResponse{Status: "ready", Services: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for _, check := range h.checks {
		if err := check.Probe(ctx); err != nil {
			resp.Services[check.Name] = "unhealthy: " + err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Services[check.Name] = "ok"
	}

	writeJSON(w, status, resp)
}
