package views

import "errors"

// ErrRender is returned when a view template fails to execute.
var ErrRender = errors.New("view render failed")
