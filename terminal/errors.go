package terminal

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoProcess is returned by operations that require an attached child
	// process, when there is none.
	ErrNoProcess = errors.New("no process is running")

	// ErrProcessRunning is returned by Spawn while a child process is still
	// running.
	ErrProcessRunning = errors.New("process is already running")

	// ErrProcessExited indicates the child process has exited. It is a
	// distinct condition, and not an I/O failure.
	ErrProcessExited = errors.New("child process has exited")

	// ErrClosed is returned by operations on a closed Terminal.
	ErrClosed = errors.New("terminal is closed")

	// ErrInvalidDimensions is matched by every *DimensionError.
	ErrInvalidDimensions = errors.New("invalid terminal dimensions")

	// ErrTimeout is matched by every *TimeoutError.
	ErrTimeout = errors.New("timeout")
)

// DimensionError reports a zero terminal width or height.
type DimensionError struct {
	Width  uint16
	Height uint16
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("invalid terminal dimensions: width=%d, height=%d", e.Width, e.Height)
}

func (e *DimensionError) Is(target error) bool { return target == ErrInvalidDimensions }

// SpawnError wraps a failure to start a child process.
type SpawnError struct {
	Err  error
	Path string
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn process %q: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// TimeoutError reports that a bounded operation did not complete within
// Timeout.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for %s after %dms", e.Op, e.Timeout.Milliseconds())
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }
