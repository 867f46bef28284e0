package web

import (
	"errors"
	"net/http"
	"strings"
)

var errUnknownPath = errors.New("path does not match any route")

type routeResponse struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

type matchResponse struct {
	Name    string            `json:"name"`
	Pattern string            `json:"pattern"`
	Params  map[string]string `json:"params"`
}

// RoutesHandler lists the route table and resolves paths against it.
type RoutesHandler struct {
	table RouteTable
}

// NewRoutesHandler creates a new routes handler.
func NewRoutesHandler(table RouteTable) *RoutesHandler {
	return &RoutesHandler{table: table}
}

// HandleRoutes handles GET /routes. With ?path=... it returns the route
// that path resolves to, or 404.
func (h *RoutesHandler) HandleRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	if path := strings.TrimSpace(r.URL.Query().Get("path")); path != "" {
		m, ok := h.table.Resolve(path)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", errUnknownPath)
			return
		}
		params := make(map[string]string, len(m.Params))
		for _, p := range m.Params {
			params[p.Key] = p.Value
		}
		writeJSON(w, http.StatusOK, matchResponse{Name: m.Name, Pattern: m.Pattern, Params: params})
		return
	}

	routes := h.table.Routes()
	out := make([]routeResponse, 0, len(routes))
	for _, rt := range routes {
		out = append(out, routeResponse{Path: rt.Path, Name: rt.Name})
	}
	writeJSON(w, http.StatusOK, out)
}
