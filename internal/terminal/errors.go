package terminal

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDispatchExhausted is matched by the error DispatchToIdle returns
	// when it runs out of attempts or time.
	ErrDispatchExhausted = errors.New("dispatch to idle exhausted")
	// ErrDeviceUnavailable means a required peripheral is missing or closed.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrAgentState means the agent is not in a state that allows a session.
	ErrAgentState = errors.New("unexpected agent state")
)

// ExhaustedError reports where the dispatcher gave up.
type ExhaustedError struct {
	Attempts   int
	Elapsed    time.Duration
	LastScreen string
}

func (e *ExhaustedError) Error() string {
	last := e.LastScreen
	if last == "" {
		last = "unrecognized"
	}
	return fmt.Sprintf("%s after %d attempts in %s (last screen: %s)",
		ErrDispatchExhausted, e.Attempts, e.Elapsed.Round(time.Second), last)
}

// Is makes errors.Is(err, ErrDispatchExhausted) hold.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrDispatchExhausted
}
