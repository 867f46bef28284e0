// Package swagger serves the OpenAPI description of the backend surface the
// dashboard client consumes.
package swagger

import (
	"context"
	_ "embed"
	"net/http"
)

// OpenAPI contains the embedded OpenAPI YAML document.
//
//go:embed openapi.yaml
var OpenAPI []byte

// Register attaches GET /openapi.yaml to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	})
}
