package vt

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joeycumines/go-tuitest/graphics"
)

// ErrInvalidDimensions is matched (via errors.Is) by every *DimensionError.
var ErrInvalidDimensions = errors.New("invalid terminal dimensions")

// DimensionError reports a grid size with a zero (or negative) dimension.
type DimensionError struct {
	Width  int
	Height int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("invalid terminal dimensions: width=%d, height=%d", e.Width, e.Height)
}

func (e *DimensionError) Is(target error) bool { return target == ErrInvalidDimensions }

// Position is a 0-indexed (row, col) cell coordinate.
type Position = graphics.Position

// Screen is the terminal state engine. It consumes the byte stream a program
// writes to its terminal, and tracks the resulting grid, cursor, and inline
// graphics.
//
// A Screen is not safe for concurrent use.
type Screen struct {
	cells   []Cell
	regions [len(graphics.Protocols)][]graphics.Region
	title   string
	parser  parser
	pen     Cell
	saved   savedCursor
	cursor  Position
	width   int
	height  int
}

type savedCursor struct {
	pen    Cell
	pos    Position
	exists bool
}

// New returns a blank width x height screen, with the cursor at (0, 0).
func New(width, height int) (*Screen, error) {
	if width < 1 || height < 1 {
		return nil, &DimensionError{Width: width, Height: height}
	}
	s := &Screen{width: width, height: height}
	s.init()
	return s, nil
}

// MustNew is like New, but panics on invalid dimensions.
func MustNew(width, height int) *Screen {
	s, err := New(width, height)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Screen) init() {
	s.cells = make([]Cell, s.width*s.height)
	for i := range s.cells {
		s.cells[i] = BlankCell
	}
	s.pen = BlankCell
	s.cursor = Position{}
	s.saved = savedCursor{}
	s.parser = parser{}
}

// Resize discards all state, including graphics, and recreates the grid at
// the new size.
func (s *Screen) Resize(width, height int) error {
	if width < 1 || height < 1 {
		return &DimensionError{Width: width, Height: height}
	}
	s.width, s.height = width, height
	s.init()
	s.title = ""
	for i := range s.regions {
		s.regions[i] = nil
	}
	return nil
}

// Reset is equivalent to a full reset (ESC c): the grid, cursor, pen, and
// parser state are cleared. Graphics regions are retained.
func (s *Screen) Reset() { s.init() }

// Feed parses p, updating the screen. Sequences split across calls are
// resumed on the next call.
func (s *Screen) Feed(p []byte) {
	for _, b := range p {
		s.advance(b)
	}
}

// Write implements io.Writer, see Feed. It never fails.
func (s *Screen) Write(p []byte) (int, error) {
	s.Feed(p)
	return len(p), nil
}

// WriteString implements io.StringWriter.
func (s *Screen) WriteString(str string) (int, error) {
	for i := 0; i < len(str); i++ {
		s.advance(str[i])
	}
	return len(str), nil
}

// Size returns the (width, height) of the grid.
func (s *Screen) Size() (width, height int) { return s.width, s.height }

// Cursor returns the current cursor position.
func (s *Screen) Cursor() Position { return s.cursor }

// Title returns the most recent window title set via OSC 0 or OSC 2.
func (s *Screen) Title() string { return s.title }

// Cell returns the cell at (row, col), and false if out of bounds.
func (s *Screen) Cell(row, col int) (Cell, bool) {
	if row < 0 || row >= s.height || col < 0 || col >= s.width {
		return Cell{}, false
	}
	return s.cells[row*s.width+col], true
}

// CharAt returns the character at (row, col), and false if out of bounds.
func (s *Screen) CharAt(row, col int) (rune, bool) {
	c, ok := s.Cell(row, col)
	return c.Rune, ok
}

// Contents returns every row, joined by newlines. Rows are always the full
// width of the grid, including trailing blanks.
func (s *Screen) Contents() string {
	var b strings.Builder
	b.Grow((s.width + 1) * s.height)
	for row := 0; row < s.height; row++ {
		if row != 0 {
			b.WriteByte('\n')
		}
		s.writeRow(&b, row, 0, s.width)
	}
	return b.String()
}

// RowContents returns a single row, or "" if row is out of bounds.
func (s *Screen) RowContents(row int) string {
	if row < 0 || row >= s.height {
		return ""
	}
	var b strings.Builder
	s.writeRow(&b, row, 0, s.width)
	return b.String()
}

// TextAt returns up to n characters starting at (row, col), truncated at the
// end of the row.
func (s *Screen) TextAt(row, col, n int) string {
	if row < 0 || row >= s.height || col < 0 || col >= s.width || n <= 0 {
		return ""
	}
	var b strings.Builder
	s.writeRow(&b, row, col, min(col+n, s.width))
	return b.String()
}

// Contains reports whether text appears in Contents.
func (s *Screen) Contains(text string) bool {
	return strings.Contains(s.Contents(), text)
}

// Lines returns every row, with trailing blanks trimmed.
func (s *Screen) Lines() []string {
	lines := make([]string, s.height)
	for row := range lines {
		lines[row] = strings.TrimRight(s.RowContents(row), " ")
	}
	return lines
}

// Dump writes a numbered rendering of the grid, for diagnostics.
func (s *Screen) Dump(w io.Writer) error {
	for row := 0; row < s.height; row++ {
		if _, err := fmt.Fprintf(w, "%3d |%s|\n", row, s.RowContents(row)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Screen) writeRow(b *strings.Builder, row, from, to int) {
	for _, c := range s.cells[row*s.width+from : row*s.width+to] {
		b.WriteRune(c.Rune)
	}
}

// Regions returns every graphics region, Sixel first, then Kitty, then
// iTerm2, each in the order they were received.
func (s *Screen) Regions() []graphics.Region {
	var out []graphics.Region
	for _, rs := range s.regions {
		out = append(out, rs...)
	}
	return out
}

// SixelRegions returns the Sixel graphics received so far.
func (s *Screen) SixelRegions() []graphics.Region { return s.protocolRegions(graphics.Sixel) }

// KittyRegions returns the Kitty graphics received so far.
func (s *Screen) KittyRegions() []graphics.Region { return s.protocolRegions(graphics.Kitty) }

// ITerm2Regions returns the iTerm2 inline images received so far.
func (s *Screen) ITerm2Regions() []graphics.Region { return s.protocolRegions(graphics.ITerm2) }

// Graphics returns a snapshot of every region, see Regions.
func (s *Screen) Graphics() *graphics.Capture {
	return graphics.NewCapture(s.Regions()...)
}

// HasSixelAt reports whether a Sixel graphic is anchored at (row, col).
func (s *Screen) HasSixelAt(row, col int) bool {
	for _, r := range s.regions[graphics.Sixel] {
		if r.Position.Row == row && r.Position.Col == col {
			return true
		}
	}
	return false
}

func (s *Screen) protocolRegions(p graphics.Protocol) []graphics.Region {
	return append([]graphics.Region(nil), s.regions[p]...)
}

func (s *Screen) addRegion(r graphics.Region) {
	s.regions[r.Protocol] = append(s.regions[r.Protocol], r)
}
