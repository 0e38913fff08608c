package harness

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/joeycumines/go-tuitest/terminal"
	"github.com/joeycumines/go-tuitest/vt"
)

const (
	// DefaultAsyncTimeout is the timeout of AsyncWait and AsyncWaitAny.
	DefaultAsyncTimeout = 5 * time.Second
	// DefaultAsyncPollInterval is the poll interval of AsyncWait and
	// AsyncWaitAny.
	DefaultAsyncPollInterval = 50 * time.Millisecond
)

// Async wraps a Harness for use from multiple goroutines. Each call runs the
// synchronous operation on its own goroutine, and returns when it completes
// or the context is done.
//
// Calls on an Async, and on its clones, are serialized: they run one at a
// time, in no particular order. Use a harness per goroutine (see the pool
// package) for parallelism.
//
// If the context is done first, the call returns ctx.Err(), but the
// dispatched operation still runs to completion, holding the lock until it
// does.
type Async struct {
	inner *asyncInner
}

type asyncInner struct {
	mu sync.Mutex
	h  *Harness
}

// NewAsync wraps h. The caller must not use h directly afterwards.
func NewAsync(h *Harness) *Async {
	return &Async{inner: &asyncInner{h: h}}
}

// Clone returns an Async sharing the same harness.
func (a *Async) Clone() *Async {
	return &Async{inner: a.inner}
}

type asyncResult[T any] struct {
	value T
	err   error
}

// run executes fn on a new goroutine with the harness locked.
func run[T any](ctx context.Context, a *Async, fn func(h *Harness) (T, error)) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	done := make(chan asyncResult[T], 1)
	go func() {
		a.inner.mu.Lock()
		defer a.inner.mu.Unlock()
		var res asyncResult[T]
		res.value, res.err = fn(a.inner.h)
		done <- res
	}()
	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func runErr(ctx context.Context, a *Async, fn func(h *Harness) error) error {
	_, err := run(ctx, a, func(h *Harness) (struct{}, error) {
		return struct{}{}, fn(h)
	})
	return err
}

// Spawn is Harness.Spawn.
func (a *Async) Spawn(ctx context.Context, cmd *exec.Cmd) error {
	return runErr(ctx, a, func(h *Harness) error { return h.Spawn(cmd) })
}

// SendText is Harness.SendText.
func (a *Async) SendText(ctx context.Context, text string) error {
	return runErr(ctx, a, func(h *Harness) error { return h.SendText(text) })
}

// SendKey is Harness.SendKey.
func (a *Async) SendKey(ctx context.Context, key KeyCode) error {
	return runErr(ctx, a, func(h *Harness) error { return h.SendKey(key) })
}

// SendKeyWithModifiers is Harness.SendKeyWithModifiers.
func (a *Async) SendKeyWithModifiers(ctx context.Context, key KeyCode, mods Modifiers) error {
	return runErr(ctx, a, func(h *Harness) error { return h.SendKeyWithModifiers(key, mods) })
}

// SendKeys is Harness.SendKeys.
func (a *Async) SendKeys(ctx context.Context, keys ...KeyCode) error {
	return runErr(ctx, a, func(h *Harness) error { return h.SendKeys(keys...) })
}

// TypeText is Harness.TypeText. The context also interrupts pacing.
func (a *Async) TypeText(ctx context.Context, text string) error {
	return runErr(ctx, a, func(h *Harness) error { return h.TypeText(ctx, text) })
}

// SendMouse is Harness.SendMouse.
func (a *Async) SendMouse(ctx context.Context, ev MouseEvent) error {
	return runErr(ctx, a, func(h *Harness) error { return h.SendMouse(ev) })
}

// UpdateState is Harness.UpdateState.
func (a *Async) UpdateState(ctx context.Context) error {
	return runErr(ctx, a, func(h *Harness) error { return h.UpdateState() })
}

// Resize is Harness.Resize.
func (a *Async) Resize(ctx context.Context, width, height uint16) error {
	return runErr(ctx, a, func(h *Harness) error { return h.Resize(width, height) })
}

// ScreenContents is Harness.ScreenContents.
func (a *Async) ScreenContents(ctx context.Context) (string, error) {
	return run(ctx, a, func(h *Harness) (string, error) { return h.ScreenContents(), nil })
}

// CursorPosition is Harness.CursorPosition.
func (a *Async) CursorPosition(ctx context.Context) (vt.Position, error) {
	return run(ctx, a, func(h *Harness) (vt.Position, error) { return h.CursorPosition(), nil })
}

// WaitForText is Harness.WaitForText.
func (a *Async) WaitForText(ctx context.Context, text string) error {
	return runErr(ctx, a, func(h *Harness) error { return h.WaitForText(text) })
}

// WaitForCursor is Harness.WaitForCursor.
func (a *Async) WaitForCursor(ctx context.Context, pos vt.Position) error {
	return runErr(ctx, a, func(h *Harness) error { return h.WaitForCursor(pos) })
}

// IsRunning is Harness.IsRunning.
func (a *Async) IsRunning(ctx context.Context) (bool, error) {
	return run(ctx, a, func(h *Harness) (bool, error) { return h.IsRunning(), nil })
}

// Kill is Harness.Kill.
func (a *Async) Kill(ctx context.Context) error {
	return runErr(ctx, a, func(h *Harness) error { return h.Kill() })
}

// Close is Harness.Close.
func (a *Async) Close(ctx context.Context) error {
	return runErr(ctx, a, func(h *Harness) error { return h.Close() })
}

// Wait starts building a wait for a single predicate.
func (a *Async) Wait(ctx context.Context) *AsyncWait {
	return &AsyncWait{
		ctx:          ctx,
		a:            a,
		timeout:      DefaultAsyncTimeout,
		pollInterval: DefaultAsyncPollInterval,
	}
}

// WaitAny starts building a wait that resolves on the first of several
// predicates to hold.
func (a *Async) WaitAny(ctx context.Context) *AsyncWaitAny {
	return &AsyncWaitAny{
		ctx:          ctx,
		a:            a,
		timeout:      DefaultAsyncTimeout,
		pollInterval: DefaultAsyncPollInterval,
	}
}

// AsyncWait configures a wait for one predicate. See Async.Wait.
type AsyncWait struct {
	ctx          context.Context
	a            *Async
	timeout      time.Duration
	pollInterval time.Duration
}

// Timeout sets the timeout. Non-positive values are ignored.
func (w *AsyncWait) Timeout(d time.Duration) *AsyncWait {
	if d > 0 {
		w.timeout = d
	}
	return w
}

// PollInterval sets the poll interval. Non-positive values are ignored.
func (w *AsyncWait) PollInterval(d time.Duration) *AsyncWait {
	if d > 0 {
		w.pollInterval = d
	}
	return w
}

// Until waits for pred, with the same semantics as Harness.WaitFor.
func (w *AsyncWait) Until(pred Predicate) error {
	res, err := (&AsyncWaitAny{
		ctx:          w.ctx,
		a:            w.a,
		preds:        []Predicate{pred},
		timeout:      w.timeout,
		pollInterval: w.pollInterval,
	}).Run()
	if err != nil {
		return err
	}
	if res.TimedOut {
		return &terminal.TimeoutError{Op: "condition", Timeout: res.Timeout}
	}
	return nil
}

// AsyncWaitAny configures a multi-predicate wait. See Async.WaitAny.
type AsyncWaitAny struct {
	ctx          context.Context
	a            *Async
	preds        []Predicate
	timeout      time.Duration
	pollInterval time.Duration
}

// WaitResult is the outcome of AsyncWaitAny.Run.
type WaitResult struct {
	// Index of the first predicate to hold, if not TimedOut.
	Index    int
	TimedOut bool
	// Timeout is the configured timeout, set if TimedOut.
	Timeout time.Duration
}

// Add appends predicates. Order determines Index, and which wins if several
// hold at once.
func (w *AsyncWaitAny) Add(preds ...Predicate) *AsyncWaitAny {
	w.preds = append(w.preds, preds...)
	return w
}

// Timeout sets the timeout. Non-positive values are ignored.
func (w *AsyncWaitAny) Timeout(d time.Duration) *AsyncWaitAny {
	if d > 0 {
		w.timeout = d
	}
	return w
}

// PollInterval sets the poll interval. Non-positive values are ignored.
func (w *AsyncWaitAny) PollInterval(d time.Duration) *AsyncWaitAny {
	if d > 0 {
		w.pollInterval = d
	}
	return w
}

// Run polls until a predicate holds or the timeout elapses, which is not
// an error, see WaitResult.TimedOut. If the process exits, the predicates
// are checked once more against the final output, and if none hold, the
// error is terminal.ErrProcessExited.
func (w *AsyncWaitAny) Run() (WaitResult, error) {
	if len(w.preds) == 0 {
		return WaitResult{}, errors.New("no predicates to wait for")
	}
	start := time.Now()
	for {
		res, err := run(w.ctx, w.a, func(h *Harness) (WaitResult, error) {
			updateErr := h.UpdateState()
			if updateErr != nil && !errors.Is(updateErr, terminal.ErrProcessExited) {
				return WaitResult{}, updateErr
			}
			for i, pred := range w.preds {
				if pred.Check(h.screen) {
					return WaitResult{Index: i}, nil
				}
			}
			if updateErr != nil {
				return WaitResult{}, fmt.Errorf("failed waiting for %d conditions: %w", len(w.preds), updateErr)
			}
			return WaitResult{Index: -1}, nil
		})
		if err != nil {
			return WaitResult{}, err
		}
		if res.Index >= 0 {
			return res, nil
		}

		elapsed := time.Since(start)
		if elapsed >= w.timeout {
			return WaitResult{Index: -1, TimedOut: true, Timeout: w.timeout}, nil
		}

		timer := time.NewTimer(min(w.pollInterval, w.timeout-elapsed))
		select {
		case <-w.ctx.Done():
			timer.Stop()
			return WaitResult{}, w.ctx.Err()
		case <-timer.C:
		}
	}
}
