// Package web wires the dashboard server's HTTP routes and middleware.
package web

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/bizdash/internal/router"
	"github.com/okian/bizdash/pkg/logger"
	"github.com/okian/bizdash/pkg/metrics"
)

// RouteTable is the view route table served under /.
type RouteTable interface {
	http.Handler
	Routes() []router.Route
	Resolve(path string) (router.Match, bool)
}

// Server wires HTTP routes for the dashboard.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	routesHandler *RoutesHandler
	table         RouteTable
	log           logger.Logger
	metrics       *metrics.Manager
}

// NewServer creates a new server around the route table. Requests are
// recorded on m and /healthz exposes m's registry; nil m uses the process
// default manager.
func NewServer(table RouteTable, statsProvider StatsProvider, log logger.Logger, m *metrics.Manager) *Server {
	if m == nil {
		m = metrics.Default()
	}
	return &Server{
		healthHandler: NewHealthHandler(m),
		statsHandler:  NewStatsHandler(statsProvider),
		routesHandler: NewRoutesHandler(table),
		table:         table,
		log:           log,
		metrics:       m,
	}
}

// Register attaches all HTTP routes to mux. The route table takes every
// path not claimed by a more specific pattern.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.metrics, s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.metrics, s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/routes", MetricsMiddleware(s.metrics, s.routesHandler.HandleRoutes, "routes"))
	mux.Handle("/", s.Wrap(MetricsMiddleware(s.metrics, s.table.ServeHTTP, "views")))
}

// Wrap applies the request id and panic recovery middleware.
func (s *Server) Wrap(next http.Handler) http.Handler {
	return RequestIDMiddleware(RecoverMiddleware(next, s.log))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
