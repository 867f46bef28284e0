package web

import "errors"

// ErrServe is returned when the dashboard server fails to serve.
var ErrServe = errors.New("dashboard serve failed")
