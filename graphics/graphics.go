// Package graphics models inline bitmap graphics placed on a terminal grid,
// and provides read-only bounds queries over them.
//
// All areas use the (row, col, width, height) convention, in 0-indexed
// terminal cell units.
package graphics

import (
	"bytes"
	"fmt"
)

// Protocol identifies one of the supported inline graphics protocols.
type Protocol int

const (
	// Sixel is the DEC Sixel bitmap protocol (DCS ... q ... ST).
	Sixel Protocol = iota
	// Kitty is the Kitty graphics protocol (APC G ... ST).
	Kitty
	// ITerm2 is the iTerm2 inline image protocol (OSC 1337;File= ... BEL).
	ITerm2
)

// Protocols lists every supported protocol, in the order regions are reported.
var Protocols = [...]Protocol{Sixel, Kitty, ITerm2}

// String returns the human-readable protocol name.
func (p Protocol) String() string {
	switch p {
	case Sixel:
		return "Sixel"
	case Kitty:
		return "Kitty"
	case ITerm2:
		return "iTerm2"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// Prefix returns the escape sequence that introduces the protocol.
func (p Protocol) Prefix() string {
	switch p {
	case Sixel:
		return "\x1bPq"
	case Kitty:
		return "\x1b_G"
	case ITerm2:
		return "\x1b]1337;File="
	default:
		return ""
	}
}

// Position is a 0-indexed (row, col) cell coordinate.
type Position struct {
	Row int
	Col int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.Row, p.Col)
}

// Area is a rectangle of cells.
type Area struct {
	Row    int
	Col    int
	Width  int
	Height int
}

func (a Area) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", a.Row, a.Col, a.Width, a.Height)
}

// Contains reports whether b lies entirely inside a.
func (a Area) Contains(b Area) bool {
	return b.Row >= a.Row &&
		b.Col >= a.Col &&
		b.Row+b.Height <= a.Row+a.Height &&
		b.Col+b.Width <= a.Col+a.Width
}

// Overlaps reports whether a and b share at least one cell.
func (a Area) Overlaps(b Area) bool {
	return !(a.Row+a.Height <= b.Row ||
		a.Col+a.Width <= b.Col ||
		a.Row >= b.Row+b.Height ||
		a.Col >= b.Col+b.Width)
}

// Region is a single graphic, as placed by the terminal.
//
// Position is the cursor position captured when the introducing sequence
// began, which is not necessarily the cursor position after the sequence was
// processed. Bounds is expressed in cells. PixelWidth and PixelHeight carry
// the raw declared size for the pixel based protocols (zero for iTerm2, or
// when no dimensions could be parsed).
type Region struct {
	Raw         []byte
	Bounds      Area
	Position    Position
	PixelWidth  int
	PixelHeight int
	Protocol    Protocol
}

// IsWithin reports whether the region's bounds are fully contained in area.
func (r Region) IsWithin(area Area) bool {
	return area.Contains(r.Bounds)
}

// Overlaps reports whether the region's bounds intersect area.
func (r Region) Overlaps(area Area) bool {
	return r.Bounds.Overlaps(area)
}

// Equal reports whether two regions are identical, including payload.
func (r Region) Equal(o Region) bool {
	return r.Protocol == o.Protocol &&
		r.Position == o.Position &&
		r.Bounds == o.Bounds &&
		r.PixelWidth == o.PixelWidth &&
		r.PixelHeight == o.PixelHeight &&
		bytes.Equal(r.Raw, o.Raw)
}

func (r Region) String() string {
	return fmt.Sprintf("%s at %s", r.Protocol, r.Position)
}
