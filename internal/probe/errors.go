package probe

import "errors"

// Probe errors.
var (
	ErrChecksFailed = errors.New("one or more endpoint checks failed")
	ErrNoDevice     = errors.New("no device to watch")
)
