package client

import (
	"errors"
	"fmt"
)

// Client errors.
var (
	ErrRequestFailed = errors.New("api request failed")
	ErrDecode        = errors.New("api response decode failed")
	ErrStream        = errors.New("device stream failed")
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrRequestFailed, e.Code)
}

// Unwrap lets errors.Is match ErrRequestFailed.
func (e *StatusError) Unwrap() error { return ErrRequestFailed }
