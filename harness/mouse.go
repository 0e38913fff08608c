package harness

import (
	"fmt"
)

// MouseButton is a mouse button, as its SGR button code.
type MouseButton uint8

const (
	MouseLeft   MouseButton = 0
	MouseMiddle MouseButton = 1
	MouseRight  MouseButton = 2
)

// ScrollDirection is a wheel direction, as its SGR button code.
type ScrollDirection uint8

const (
	ScrollUp    ScrollDirection = 64
	ScrollDown  ScrollDirection = 65
	ScrollLeft  ScrollDirection = 66
	ScrollRight ScrollDirection = 67
)

// MouseEvent is a mouse report, sent using SGR (1006) encoding. Coordinates
// are 0-indexed cells.
type MouseEvent struct {
	Col       int
	Row       int
	Code      uint8
	Press     bool
	Drag      bool
	Modifiers Modifiers
}

// MousePress returns a button press at (row, col).
func MousePress(row, col int, button MouseButton) MouseEvent {
	return MouseEvent{Row: row, Col: col, Code: uint8(button), Press: true}
}

// MouseRelease returns a button release at (row, col).
func MouseRelease(row, col int, button MouseButton) MouseEvent {
	return MouseEvent{Row: row, Col: col, Code: uint8(button)}
}

// MouseDrag returns motion with button held, at (row, col).
func MouseDrag(row, col int, button MouseButton) MouseEvent {
	return MouseEvent{Row: row, Col: col, Code: uint8(button), Press: true, Drag: true}
}

// MouseScroll returns a wheel event at (row, col).
func MouseScroll(row, col int, dir ScrollDirection) MouseEvent {
	return MouseEvent{Row: row, Col: col, Code: uint8(dir), Press: true}
}

// WithModifiers returns a copy of e with mods held.
func (e MouseEvent) WithModifiers(mods Modifiers) MouseEvent {
	e.Modifiers = mods
	return e
}

// Bytes encodes e as ESC [ < code ; col+1 ; row+1 followed by M for a press
// or m for a release. Shift adds 4, Alt 8, Ctrl 16, and motion 32 to the
// button code.
func (e MouseEvent) Bytes() []byte {
	code := int(e.Code)
	if e.Modifiers.Has(ModShift) {
		code += 4
	}
	if e.Modifiers.Has(ModAlt) {
		code += 8
	}
	if e.Modifiers.Has(ModCtrl) {
		code += 16
	}
	if e.Drag {
		code += 32
	}
	final := 'm'
	if e.Press {
		final = 'M'
	}
	return fmt.Appendf(nil, "\x1b[<%d;%d;%d%c", code, max(e.Col, 0)+1, max(e.Row, 0)+1, final)
}
