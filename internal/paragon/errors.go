package paragon

import (
	"errors"
	"fmt"
)

// ErrScreenUnavailable means the screen could not be read right now. It is
// transient: pollers retry it, the dispatcher treats it as a hard stop.
var ErrScreenUnavailable = errors.New("screen unavailable")

// APIError is a non-2xx answer from the simulator.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}
