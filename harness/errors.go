package harness

import (
	"fmt"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-tuitest/vt"
)

// WaitError is returned when a wait fails, either by timeout (Err is a
// *terminal.TimeoutError) or because the process exited without the
// condition holding (Err is terminal.ErrProcessExited).
type WaitError struct {
	Description string
	Elapsed     time.Duration
	Iterations  int
	Cursor      vt.Position
	// Screen is the screen contents when the wait gave up.
	Screen string
	Err    error
}

func (e *WaitError) Error() string {
	return fmt.Sprintf("failed waiting for %s after %s (%d iterations): %v", e.Description, e.Elapsed.Round(time.Millisecond), e.Iterations, e.Err)
}

func (e *WaitError) Unwrap() error { return e.Err }

// AssertionError is returned by the Assert methods.
type AssertionError struct {
	Message string
	Screen  string
	// Err is the underlying error, if any.
	Err error
}

func (e *AssertionError) Error() string {
	return "assertion failed: " + e.Message
}

func (e *AssertionError) Unwrap() error { return e.Err }

// validateRates reports rates that catrate.NewLimiter would panic on.
func validateRates(rates map[time.Duration]int) (err error) {
	if len(rates) == 0 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid typing rate: %v", r)
		}
	}()
	catrate.NewLimiter(rates)
	return nil
}

// closestLine finds the line containing the substring nearest to text, by
// edit distance over every window of the same length.
func closestLine(lines []string, text string) (row int, line string, distance int, ok bool) {
	want := []rune(text)
	distance = -1
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		d := windowDistance([]rune(l), want)
		if distance < 0 || d < distance {
			row, line, distance, ok = i, l, d, true
		}
	}
	return
}

func windowDistance(line, want []rune) int {
	if len(line) <= len(want) {
		return levenshtein.ComputeDistance(string(line), string(want))
	}
	best := len(want)
	for i := 0; i+len(want) <= len(line) && best > 0; i++ {
		if d := levenshtein.ComputeDistance(string(line[i:i+len(want)]), string(want)); d < best {
			best = d
		}
	}
	return best
}
