package smtp

import (
	"errors"
	"fmt"
)

// ErrServerClosed is returned by receive calls after Close.
var ErrServerClosed = errors.New("smtp: server closed")

// errPeerClosed marks a transport failure caused by the client going away.
var errPeerClosed = errors.New("smtp: connection closed by peer")

// UnexpectedDataError reports a line that did not match the required literal
// or pattern.
type UnexpectedDataError struct {
	Expected string
	Actual   string
}

func (e *UnexpectedDataError) Error() string {
	return fmt.Sprintf("received unexpected data; expected %q, actual %q", e.Expected, e.Actual)
}

// UnexpectedContinuationError reports an unrecognized command after the
// authentication step.
type UnexpectedContinuationError struct {
	Actual string
}

func (e *UnexpectedContinuationError) Error() string {
	return fmt.Sprintf("received unexpected continuation: %q", e.Actual)
}

// AcceptError wraps a listener failure.
type AcceptError struct {
	Err error
}

func (e *AcceptError) Error() string {
	return fmt.Sprintf("smtp: accept: %v", e.Err)
}

func (e *AcceptError) Unwrap() error {
	return e.Err
}
