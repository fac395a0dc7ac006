package transport

import "errors"

// Transport controller errors
var (
	// ErrStopped indicates the controller loop is no longer running
	ErrStopped = errors.New("transport controller stopped")

	// ErrNotStarted indicates an intent was sent before Start
	ErrNotStarted = errors.New("transport controller not started")

	// ErrUnknownEvent indicates a resource event with an unrecognized type
	ErrUnknownEvent = errors.New("unknown resource event")

	// ErrInvalidEvent indicates a resource event with invalid fields
	ErrInvalidEvent = errors.New("invalid resource event")
)

// IsStopped checks if the error is a stopped controller error
func IsStopped(err error) bool {
	return errors.Is(err, ErrStopped)
}

// IsInvalidEvent checks if the error is an unknown or malformed event
func IsInvalidEvent(err error) bool {
	return errors.Is(err, ErrUnknownEvent) || errors.Is(err, ErrInvalidEvent)
}
