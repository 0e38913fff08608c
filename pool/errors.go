package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrAcquireTimeout is matched by the error Acquire returns when no
	// terminal became available in time. The error is also a
	// *terminal.TimeoutError carrying the acquire timeout.
	ErrAcquireTimeout = errors.New("acquire timeout")

	// ErrUnknownTerminal is matched by *UnknownTerminalError.
	ErrUnknownTerminal = errors.New("unknown terminal")

	// ErrClosed is returned by operations on a closed pool.
	ErrClosed = errors.New("pool is closed")
)

// UnknownTerminalError is returned when releasing an ID the pool does not
// hold, including one removed by Clear.
type UnknownTerminalError struct {
	ID TerminalID
}

func (e *UnknownTerminalError) Error() string {
	return fmt.Sprintf("terminal %s not found in pool", e.ID)
}

func (e *UnknownTerminalError) Is(target error) bool { return target == ErrUnknownTerminal }
