package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/bizdash/pkg/metrics"
)

// HealthHandler serves a metrics manager's registry as the health endpoint.
type HealthHandler struct {
	metrics http.Handler
}

// NewHealthHandler creates a health handler exposing m's metrics.
func NewHealthHandler(m *metrics.Manager) *HealthHandler {
	return &HealthHandler{metrics: promhttp.HandlerFor(m.Gatherer(), promhttp.HandlerOpts{})}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}
