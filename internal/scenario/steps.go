package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joeycumines/go-tuitest/graphics"
	"github.com/joeycumines/go-tuitest/harness"
	"github.com/joeycumines/go-tuitest/terminal"
	"github.com/joeycumines/go-tuitest/vt"
)

// Step is a single scenario action.
type Step interface {
	Run(ctx context.Context, h *harness.Harness) error
	String() string
}

var stepParsers = map[string]func(value any) (Step, error){
	"wait_text":              parseWaitText,
	"send_text":              parseSendText,
	"type_text":              parseTypeText,
	"send_key":               parseSendKey,
	"wait_cursor":            parseWaitCursor,
	"assert_text":            parseAssertText,
	"assert_graphics_within": parseAssertGraphicsWithin,
	"sleep":                  parseSleep,
	"resize":                 parseResize,
	"wait_exit":              parseWaitExit,
}

// WaitText waits for text to appear on the screen.
type WaitText struct {
	Text string
	// Timeout overrides the harness timeout, if positive.
	Timeout time.Duration
}

func parseWaitText(value any) (Step, error) {
	var s WaitText
	if text, ok := value.(string); ok {
		s.Text = text
	} else if err := decode(value, &s); err != nil {
		return nil, err
	}
	if s.Text == "" {
		return nil, errors.New("text is required")
	}
	return s, nil
}

func (s WaitText) Run(_ context.Context, h *harness.Harness) error {
	if s.Timeout > 0 {
		return h.WaitForTextTimeout(s.Text, s.Timeout)
	}
	return h.WaitForText(s.Text)
}

func (s WaitText) String() string { return fmt.Sprintf("wait_text %q", s.Text) }

// SendText writes text verbatim.
type SendText struct {
	Text string
}

func parseSendText(value any) (Step, error) {
	text, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %T", value)
	}
	return SendText{Text: text}, nil
}

func (s SendText) Run(_ context.Context, h *harness.Harness) error { return h.SendText(s.Text) }

func (s SendText) String() string { return fmt.Sprintf("send_text %q", s.Text) }

// TypeText types text one key at a time.
type TypeText struct {
	Text string
}

func parseTypeText(value any) (Step, error) {
	text, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %T", value)
	}
	return TypeText{Text: text}, nil
}

func (s TypeText) Run(ctx context.Context, h *harness.Harness) error { return h.TypeText(ctx, s.Text) }

func (s TypeText) String() string { return fmt.Sprintf("type_text %q", s.Text) }

// SendKey sends one key, optionally with modifiers.
type SendKey struct {
	Key  harness.KeyCode
	Mods harness.Modifiers
}

func parseSendKey(value any) (Step, error) {
	var raw struct {
		Key  string
		Mods []string
	}
	if name, ok := value.(string); ok {
		raw.Key = name
	} else if err := decode(value, &raw); err != nil {
		return nil, err
	}
	key, err := harness.ParseKey(raw.Key)
	if err != nil {
		return nil, err
	}
	mods, err := harness.ParseModifiers(raw.Mods...)
	if err != nil {
		return nil, err
	}
	return SendKey{Key: key, Mods: mods}, nil
}

func (s SendKey) Run(_ context.Context, h *harness.Harness) error {
	return h.SendKeyWithModifiers(s.Key, s.Mods)
}

func (s SendKey) String() string {
	if s.Mods == 0 {
		return "send_key " + s.Key.String()
	}
	return fmt.Sprintf("send_key %s+%s", s.Mods, s.Key)
}

// WaitCursor waits for the cursor to reach a position.
type WaitCursor struct {
	Row int
	Col int
}

func parseWaitCursor(value any) (Step, error) {
	var s WaitCursor
	if err := decode(value, &s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s WaitCursor) Run(_ context.Context, h *harness.Harness) error {
	return h.WaitForCursor(vt.Position{Row: s.Row, Col: s.Col})
}

func (s WaitCursor) String() string { return fmt.Sprintf("wait_cursor (%d, %d)", s.Row, s.Col) }

// AssertText checks the screen contains text, without waiting.
type AssertText struct {
	Text string
}

func parseAssertText(value any) (Step, error) {
	text, ok := value.(string)
	if !ok || text == "" {
		return nil, errors.New("expected a non-empty string")
	}
	return AssertText{Text: text}, nil
}

func (s AssertText) Run(_ context.Context, h *harness.Harness) error {
	if err := h.UpdateState(); err != nil && !errors.Is(err, terminal.ErrProcessExited) {
		return err
	}
	return h.AssertText(s.Text)
}

func (s AssertText) String() string { return fmt.Sprintf("assert_text %q", s.Text) }

// AssertGraphicsWithin checks every graphic lies within an area.
type AssertGraphicsWithin struct {
	Area graphics.Area
}

func parseAssertGraphicsWithin(value any) (Step, error) {
	var s AssertGraphicsWithin
	if err := decode(value, &s.Area); err != nil {
		return nil, err
	}
	return s, nil
}

func (s AssertGraphicsWithin) Run(_ context.Context, h *harness.Harness) error {
	if err := h.UpdateState(); err != nil && !errors.Is(err, terminal.ErrProcessExited) {
		return err
	}
	return h.AssertNoGraphicsOutside(s.Area)
}

func (s AssertGraphicsWithin) String() string {
	return "assert_graphics_within " + s.Area.String()
}

// Sleep pauses the scenario.
type Sleep struct {
	Duration time.Duration
}

func parseSleep(value any) (Step, error) {
	var s Sleep
	if err := decode(value, &s.Duration); err != nil {
		return nil, err
	}
	if s.Duration < 0 {
		return nil, errors.New("duration must not be negative")
	}
	return s, nil
}

func (s Sleep) Run(ctx context.Context, _ *harness.Harness) error {
	timer := time.NewTimer(s.Duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s Sleep) String() string { return "sleep " + s.Duration.String() }

// Resize resizes the terminal, which also clears the screen model.
type Resize struct {
	Cols int
	Rows int
}

func parseResize(value any) (Step, error) {
	var s Resize
	if err := decode(value, &s); err != nil {
		return nil, err
	}
	if s.Cols <= 0 || s.Rows <= 0 || s.Cols > 0xffff || s.Rows > 0xffff {
		return nil, fmt.Errorf("invalid size %dx%d", s.Cols, s.Rows)
	}
	return s, nil
}

func (s Resize) Run(_ context.Context, h *harness.Harness) error {
	return h.Resize(uint16(s.Cols), uint16(s.Rows))
}

func (s Resize) String() string { return fmt.Sprintf("resize %dx%d", s.Cols, s.Rows) }

// WaitExit waits for the process to exit, optionally checking its exit
// code.
type WaitExit struct {
	Code    *int
	Timeout time.Duration
}

func parseWaitExit(value any) (Step, error) {
	var s WaitExit
	if value != nil {
		if err := decode(value, &s); err != nil {
			return nil, err
		}
	}
	if s.Timeout <= 0 {
		s.Timeout = harness.DefaultTimeout
	}
	return s, nil
}

func (s WaitExit) Run(_ context.Context, h *harness.Harness) error {
	status, err := h.WaitExit(s.Timeout)
	if err != nil {
		return err
	}
	if s.Code != nil && (status.Signaled || status.Code != *s.Code) {
		return fmt.Errorf("expected exit code %d, got %s", *s.Code, status)
	}
	return nil
}

func (s WaitExit) String() string {
	if s.Code != nil {
		return fmt.Sprintf("wait_exit %d", *s.Code)
	}
	return "wait_exit"
}
