package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-tuitest/graphics"
	"github.com/joeycumines/go-tuitest/terminal"
	"github.com/joeycumines/go-tuitest/vt"
)

// updateReadTimeout is the budget of each read made by UpdateState. Output
// that is already buffered is returned immediately.
const updateReadTimeout = 10 * time.Millisecond

// exitDrainBudget bounds the drain of a process's final output, which may
// not end if a descendant still holds the terminal open.
const exitDrainBudget = time.Second

// typingCategory is the catrate category used to pace TypeText.
const typingCategory = "typing"

// Harness drives a program in a pseudo-terminal, and maintains a model of
// what that terminal displays.
//
// A Harness is not safe for concurrent use. See Async for a serialized,
// context-aware wrapper.
type Harness struct {
	cfg     *config
	term    *terminal.Terminal
	screen  *vt.Screen
	limiter *catrate.Limiter
	buf     []byte
	// ownsTerminal is set if Close should close term.
	ownsTerminal bool
}

// New creates a Harness with its own terminal. No process is started.
func New(opts ...Option) (*Harness, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	termOpts := append([]terminal.Option{terminal.WithLogger(cfg.logger)}, cfg.termOpts...)
	term, err := terminal.New(cfg.width, cfg.height, termOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal: %w", err)
	}

	h, err := newHarness(cfg, term)
	if err != nil {
		_ = term.Close()
		return nil, err
	}
	h.ownsTerminal = true
	return h, nil
}

// NewWithTerminal creates a Harness over an existing terminal, such as one
// acquired from a pool. The harness adopts the terminal's size, and Close
// kills any attached process but leaves the terminal open.
func NewWithTerminal(term *terminal.Terminal, opts ...Option) (*Harness, error) {
	if term == nil {
		return nil, errors.New("failed to create harness: nil terminal")
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	cfg.width, cfg.height = term.Size()
	return newHarness(cfg, term)
}

func newHarness(cfg *config, term *terminal.Terminal) (*Harness, error) {
	screen, err := vt.New(int(cfg.width), int(cfg.height))
	if err != nil {
		return nil, err
	}
	h := &Harness{
		cfg:    cfg,
		term:   term,
		screen: screen,
		buf:    make([]byte, cfg.bufferSize),
	}
	if len(cfg.typingRates) != 0 {
		h.limiter = catrate.NewLimiter(cfg.typingRates)
	}
	return h, nil
}

// Spawn starts cmd in the terminal. It fails with terminal.ErrProcessRunning
// if a process is still running.
func (h *Harness) Spawn(cmd *exec.Cmd) error {
	return h.term.Spawn(cmd)
}

// SpawnCommand is Spawn for exec.Command(name, args...).
func (h *Harness) SpawnCommand(name string, args ...string) error {
	return h.Spawn(exec.Command(name, args...))
}

// SendText writes text verbatim, then refreshes the screen.
func (h *Harness) SendText(text string) error {
	if err := h.term.WriteAll([]byte(text)); err != nil {
		return err
	}
	return h.refresh()
}

// SendKey sends a single unmodified key.
func (h *Harness) SendKey(key KeyCode) error {
	return h.SendKeyWithModifiers(key, 0)
}

// SendKeyWithModifiers sends key with mods held, pauses for the key delay so
// the program can react, then refreshes the screen.
func (h *Harness) SendKeyWithModifiers(key KeyCode, mods Modifiers) error {
	if err := h.term.WriteAll(EncodeKey(key, mods)); err != nil {
		return err
	}
	time.Sleep(h.cfg.keyDelay)
	return h.refresh()
}

// SendKeys sends each key in turn, as SendKey.
func (h *Harness) SendKeys(keys ...KeyCode) error {
	for _, key := range keys {
		if err := h.SendKey(key); err != nil {
			return err
		}
	}
	return nil
}

// TypeText sends each character of text as a separate key, paced by the
// typing rate if one is configured, then refreshes the screen. Unlike
// SendKeys, there is no per-key delay.
func (h *Harness) TypeText(ctx context.Context, text string) error {
	for _, r := range text {
		if err := h.awaitTypingSlot(ctx); err != nil {
			return err
		}
		if err := h.term.WriteAll(EncodeKey(Char(r), 0)); err != nil {
			return err
		}
	}
	return h.refresh()
}

func (h *Harness) awaitTypingSlot(ctx context.Context) error {
	for {
		next, ok := h.limiter.Allow(typingCategory)
		if ok {
			return nil
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// SendMouse sends a mouse report, pauses for the key delay, then refreshes
// the screen. The program must have enabled SGR mouse reporting to
// interpret it.
func (h *Harness) SendMouse(ev MouseEvent) error {
	if err := h.term.WriteAll(ev.Bytes()); err != nil {
		return err
	}
	time.Sleep(h.cfg.keyDelay)
	return h.refresh()
}

// refresh is UpdateState for input methods, where process exit is reported
// by the next wait rather than as a failure to send.
func (h *Harness) refresh() error {
	if err := h.UpdateState(); err != nil && !errors.Is(err, terminal.ErrProcessExited) {
		return err
	}
	return nil
}

// UpdateState feeds the currently available output to the screen. A program
// that writes continuously is read for at most the poll interval, so callers
// can check their conditions in between. If the process has exited, the
// final output is drained, and then terminal.ErrProcessExited is returned.
func (h *Harness) UpdateState() error {
	// checked first, so that output written before the exit is consumed
	exited := h.term.Exited()
	budget := max(h.cfg.pollInterval, updateReadTimeout)
	if exited {
		budget = exitDrainBudget
	}
	deadline := time.Now().Add(budget)
	for {
		n, err := h.term.ReadTimeout(h.buf, updateReadTimeout)
		if n > 0 {
			h.screen.Feed(h.buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read from terminal: %w", err)
		}
		if n == 0 || !time.Now().Before(deadline) {
			break
		}
	}
	if exited {
		return terminal.ErrProcessExited
	}
	return nil
}

// WaitFor polls until pred holds, using the configured timeout.
func (h *Harness) WaitFor(pred Predicate) error {
	return h.wait("condition", pred, h.cfg.timeout, "")
}

// WaitForDescribed is WaitFor, with a description for diagnostics.
func (h *Harness) WaitForDescribed(description string, pred Predicate) error {
	return h.wait(description, pred, h.cfg.timeout, "")
}

// WaitForTimeout is WaitFor with an explicit timeout.
func (h *Harness) WaitForTimeout(pred Predicate, timeout time.Duration) error {
	return h.wait("condition", pred, timeout, "")
}

// WaitForText polls until text appears on the screen.
func (h *Harness) WaitForText(text string) error {
	return h.WaitForTextTimeout(text, h.cfg.timeout)
}

// WaitForTextTimeout is WaitForText with an explicit timeout.
func (h *Harness) WaitForTextTimeout(text string, timeout time.Duration) error {
	return h.wait(fmt.Sprintf("text %q", text), TextContains(text), timeout, text)
}

// WaitForCursor polls until the cursor is at pos.
func (h *Harness) WaitForCursor(pos vt.Position) error {
	return h.WaitForCursorTimeout(pos, h.cfg.timeout)
}

// WaitForCursorTimeout is WaitForCursor with an explicit timeout.
func (h *Harness) WaitForCursorTimeout(pos vt.Position, timeout time.Duration) error {
	return h.wait(fmt.Sprintf("cursor at %s", pos), CursorAt(pos), timeout, "")
}

// wait implements the polling loop. If the process exits mid-wait, pred gets
// one final check against the drained screen, so a program that exits right
// after producing the expected output is not a failure.
func (h *Harness) wait(description string, pred Predicate, timeout time.Duration, text string) error {
	start := time.Now()
	var iterations int
	for {
		updateErr := h.UpdateState()
		if updateErr != nil && !errors.Is(updateErr, terminal.ErrProcessExited) {
			return updateErr
		}

		if pred.Check(h.screen) {
			return nil
		}

		elapsed := time.Since(start)

		if updateErr != nil {
			h.diagnose("Process exited while waiting for", description, elapsed, iterations, text)
			return h.waitError(description, elapsed, iterations, updateErr)
		}

		if elapsed >= timeout {
			h.cfg.logger.Warning().
				Str("condition", description).
				Dur("timeout", timeout).
				Int("iterations", iterations).
				Log("timeout waiting for condition")
			h.diagnose("Timeout waiting for", description, elapsed, iterations, text)
			return h.waitError(description, elapsed, iterations, &terminal.TimeoutError{Op: description, Timeout: timeout})
		}

		iterations++
		time.Sleep(min(h.cfg.pollInterval, timeout-elapsed))
	}
}

func (h *Harness) waitError(description string, elapsed time.Duration, iterations int, err error) *WaitError {
	return &WaitError{
		Description: description,
		Elapsed:     elapsed,
		Iterations:  iterations,
		Cursor:      h.screen.Cursor(),
		Screen:      h.screen.Contents(),
		Err:         err,
	}
}

// diagnose prints the failure diagnostic block, including the closest
// screen line when waiting for text.
func (h *Harness) diagnose(heading, description string, elapsed time.Duration, iterations int, text string) {
	w := h.cfg.diagnostics
	if w == nil {
		return
	}
	var b strings.Builder
	cursor := h.screen.Cursor()
	fmt.Fprintf(&b, "\n=== %s: %s ===\n", heading, description)
	fmt.Fprintf(&b, "Waited: %s (%d iterations)\n", elapsed.Round(time.Millisecond), iterations)
	fmt.Fprintf(&b, "Cursor position: row=%d, col=%d\n", cursor.Row, cursor.Col)
	b.WriteString("Current screen state:\n")
	_ = h.screen.Dump(&b)
	if text != "" {
		if row, line, distance, ok := closestLine(h.screen.Lines(), text); ok {
			fmt.Fprintf(&b, "Closest line: row=%d, distance=%d: %q\n", row, distance, line)
		}
	}
	b.WriteString("==========================================\n")
	_, _ = io.WriteString(w, b.String())
}

// ScreenContents returns the screen text, see vt.Screen.Contents.
func (h *Harness) ScreenContents() string { return h.screen.Contents() }

// CursorPosition returns the cursor position.
func (h *Harness) CursorPosition() vt.Position { return h.screen.Cursor() }

// Screen returns the screen model. It must only be read, since the harness
// feeds it.
func (h *Harness) Screen() *vt.Screen { return h.screen }

// Graphics returns a snapshot of the graphics regions on the screen.
func (h *Harness) Graphics() *graphics.Capture { return h.screen.Graphics() }

// Terminal returns the underlying terminal.
func (h *Harness) Terminal() *terminal.Terminal { return h.term }

// Resize resizes the terminal, and replaces the screen with a blank one of
// the new size.
func (h *Harness) Resize(width, height uint16) error {
	if err := h.term.Resize(width, height); err != nil {
		return err
	}
	screen, err := vt.New(int(width), int(height))
	if err != nil {
		return err
	}
	h.screen = screen
	h.cfg.width, h.cfg.height = width, height
	return nil
}

// IsRunning reports whether the process is still running.
func (h *Harness) IsRunning() bool { return h.term.IsRunning() }

// Wait blocks until the process exits, feeding its output to the screen
// meanwhile, so a program that writes more than the terminal buffers can
// still finish.
func (h *Harness) Wait() (terminal.ExitStatus, error) {
	return h.waitExit(0)
}

// WaitExit is Wait, bounded by timeout, or by the default timeout if timeout
// is not positive.
func (h *Harness) WaitExit(timeout time.Duration) (terminal.ExitStatus, error) {
	if timeout <= 0 {
		timeout = h.cfg.timeout
	}
	return h.waitExit(timeout)
}

// waitExit implements Wait and WaitExit. A zero timeout waits indefinitely.
func (h *Harness) waitExit(timeout time.Duration) (terminal.ExitStatus, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		// a Kill detaches the process
		if !h.term.HasProcess() {
			return terminal.ExitStatus{}, terminal.ErrNoProcess
		}
		err := h.UpdateState()
		if errors.Is(err, terminal.ErrProcessExited) {
			return h.term.Wait()
		}
		if err != nil {
			return terminal.ExitStatus{}, err
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return terminal.ExitStatus{}, &terminal.TimeoutError{Op: "process exit", Timeout: timeout}
		}
	}
}

// Kill terminates the process, see terminal.Terminal.Kill.
func (h *Harness) Kill() error { return h.term.Kill() }

// Close kills any process, and closes the terminal if the harness created it.
func (h *Harness) Close() error {
	if h.ownsTerminal {
		return h.term.Close()
	}
	if err := h.term.Kill(); err != nil && !errors.Is(err, terminal.ErrNoProcess) {
		return err
	}
	return nil
}

// AssertText checks that text is on the screen, without refreshing it.
func (h *Harness) AssertText(text string) error {
	if h.screen.Contains(text) {
		return nil
	}
	return &AssertionError{
		Message: fmt.Sprintf("expected screen to contain %q", text),
		Screen:  h.screen.Contents(),
	}
}

// AssertNoGraphicsOutside checks that every graphics region lies within area.
// The error wraps a *graphics.BoundsError.
func (h *Harness) AssertNoGraphicsOutside(area graphics.Area) error {
	if err := h.screen.Graphics().AssertAllWithin(area); err != nil {
		return &AssertionError{
			Message: err.Error(),
			Screen:  h.screen.Contents(),
			Err:     err,
		}
	}
	return nil
}
