package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/soyingpang/sportsday-race-mvp/internal/adapters/remote"
	"github.com/soyingpang/sportsday-race-mvp/pkg/metrics"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	sync SyncStatus
}

// NewHealthHandler creates a new health handler. sync may be nil.
func NewHealthHandler(sync SyncStatus) *HealthHandler {
	return &HealthHandler{sync: sync}
}

type syncHealth struct {
	Enabled    bool         `json:"enabled"`
	State      remote.State `json:"state"`
	InstanceID string       `json:"instanceId,omitempty"`
}

type healthResponse struct {
	Status string     `json:"status"`
	Sync   syncHealth `json:"sync"`
}

// HandleHealth handles GET /healthz. Sync trouble never makes the station unhealthy.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Sync: syncHealth{State: remote.StateDisabled}}
	if h.sync != nil {
		resp.Sync = syncHealth{
			Enabled:    h.sync.Enabled(),
			State:      h.sync.State(),
			InstanceID: h.sync.InstanceID(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// MetricsHandler serves the custom Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
