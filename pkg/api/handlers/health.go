package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/asyncload/pkg/loader"
)

// HealthCheckTimeout is the maximum time allowed for the store health check.
const HealthCheckTimeout = 5 * time.Second

// HealthChecker is implemented by package stores.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// StatusReporter exposes a loader status snapshot.
type StatusReporter interface {
	Status() loader.Status
}

// StoreHealth represents the health status of the package store.
type StoreHealth struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store     HealthChecker
	storeType string
	loader    StatusReporter
	startTime time.Time

	// instanceID distinguishes restarts of the same service.
	instanceID string
}

// NewHealthHandler creates a new health handler. Either dependency may be
// nil, in which case readiness reports unhealthy.
func NewHealthHandler(store HealthChecker, storeType string, ld StatusReporter) *HealthHandler {
	return &HealthHandler{
		store:     store,
		storeType: storeType,
		loader:    ld,
		startTime: time.Now(),

		instanceID: uuid.NewString(),
	}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	WriteJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":     "asyncload",
		"instance_id": h.instanceID,
		"started_at":  h.startTime.UTC().Format(time.RFC3339),
		"uptime":      uptime.Round(time.Second).String(),
		"uptime_sec":  int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready.
//
// Returns 200 OK when the loader is running and the package store answers
// its health check, 503 Service Unavailable otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.loader == nil || h.store == nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("loader not initialized", nil))
		return
	}

	status := h.loader.Status()
	if status.Closed {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("loader stopped", nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	start := time.Now()
	err := h.store.HealthCheck(ctx)
	storeHealth := StoreHealth{
		Type:    h.storeType,
		Status:  "healthy",
		Latency: time.Since(start).String(),
	}

	data := map[string]any{
		"store":     storeHealth,
		"strategy":  status.Strategy,
		"suspended": status.Suspended,
	}

	if err != nil {
		storeHealth.Status = "unhealthy"
		storeHealth.Error = err.Error()
		data["store"] = storeHealth
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("package store unhealthy", data))
		return
	}

	WriteJSON(w, http.StatusOK, healthyResponse(data))
}
