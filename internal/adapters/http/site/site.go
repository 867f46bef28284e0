// Package site serves the dashboard's embedded static assets.
package site

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
)

// Prefix is the URL path the assets are served under.
const Prefix = "/static/"

//go:embed static/*
var staticFS embed.FS

// FS returns an http.FileSystem rooted at the embedded static directory.
func FS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return http.FS(staticFS)
	}
	return http.FS(sub)
}

// Register attaches the static asset routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle(Prefix, http.StripPrefix(Prefix, http.FileServer(FS())))
}
