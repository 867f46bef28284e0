package router

import "errors"

// ErrViewLoad is returned when a route's view cannot be loaded.
var ErrViewLoad = errors.New("view load failed")

var errNoView = errors.New("loader returned no view")
