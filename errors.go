package relay

import "errors"

// Predefined error types for robust error handling
var (
	ErrWriteFailed     = errors.New("command write failed")
	ErrReadFailed      = errors.New("response read failed")
	ErrReadTimeout     = errors.New("response timed out before terminator")
	ErrFrameTooLarge   = errors.New("response exceeded maximum frame size")
	ErrQueueClosed     = errors.New("relay queue is closed")
	ErrPipelineStopped = errors.New("pipeline already stopped")
	ErrInvalidConfig   = errors.New("invalid relay configuration")
	ErrNoPorts         = errors.New("no ports to poll")
)
