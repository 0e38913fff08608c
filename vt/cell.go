package vt

import (
	"strconv"
)

// Color is an optional 256-color palette index. DefaultColor means no color
// was set.
type Color int16

// DefaultColor is the zero-configuration color, rendered as the terminal's
// default foreground or background.
const DefaultColor Color = -1

// PaletteColor returns the Color for palette index i.
func PaletteColor(i uint8) Color { return Color(i) }

// Index returns the palette index, and false for DefaultColor.
func (c Color) Index() (uint8, bool) {
	if c < 0 || c > 255 {
		return 0, false
	}
	return uint8(c), true
}

func (c Color) String() string {
	if i, ok := c.Index(); ok {
		return strconv.Itoa(int(i))
	}
	return "default"
}

// Cell is a single character position on the grid.
type Cell struct {
	Rune      rune
	Fg        Color
	Bg        Color
	Bold      bool
	Italic    bool
	Underline bool
}

// BlankCell is the cell every grid position holds before anything is
// printed to it.
var BlankCell = Cell{Rune: ' ', Fg: DefaultColor, Bg: DefaultColor}

// withRune returns a copy of the cell's attributes, holding r.
func (c Cell) withRune(r rune) Cell {
	c.Rune = r
	return c
}

// HasAttributes reports whether any color or style is set.
func (c Cell) HasAttributes() bool {
	return c.Fg != DefaultColor || c.Bg != DefaultColor || c.Bold || c.Italic || c.Underline
}
