package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joeycumines/go-tuitest/vt"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

type colorMode int

const (
	colorAuto colorMode = iota
	colorAlways
	colorNever
)

func parseColorMode(s string) (colorMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return colorAuto, nil
	case "always":
		return colorAlways, nil
	case "never":
		return colorNever, nil
	default:
		return 0, fmt.Errorf("invalid color mode: %q", s)
	}
}

// screenPrinter writes a screen dump. Cell colors and styles are rendered
// with SGR sequences unless the profile is termenv.Ascii.
type screenPrinter struct {
	w       io.Writer
	profile termenv.Profile
}

func newScreenPrinter(w io.Writer, mode colorMode) *screenPrinter {
	profile := termenv.Ascii
	switch mode {
	case colorAlways:
		profile = termenv.ANSI256
	case colorAuto:
		if isTerminal(w) && !termenv.EnvNoColor() {
			profile = termenv.ANSI256
		}
	}
	return &screenPrinter{w: w, profile: profile}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Print writes the non-blank rows of screen, then the cursor position and
// graphics regions.
func (p *screenPrinter) Print(screen *vt.Screen) error {
	b := bufio.NewWriter(p.w)
	width, height := screen.Size()

	last := -1
	for row := height - 1; row >= 0; row-- {
		if lineEnd(screen, row, width) > 0 {
			last = row
			break
		}
	}

	fmt.Fprintf(b, "--- screen %dx%d ---\n", width, height)
	for row := 0; row <= last; row++ {
		p.writeRow(b, screen, row, lineEnd(screen, row, width))
		b.WriteByte('\n')
	}
	fmt.Fprintf(b, "--- cursor %s ---\n", screen.Cursor())

	regions := screen.Regions()
	if len(regions) == 0 {
		b.WriteString("--- graphics: none ---\n")
	} else {
		fmt.Fprintf(b, "--- graphics: %d ---\n", len(regions))
		for _, r := range regions {
			fmt.Fprintf(b, "%s, bounds %s", r, r.Bounds)
			if r.PixelWidth != 0 || r.PixelHeight != 0 {
				fmt.Fprintf(b, ", %dx%d px", r.PixelWidth, r.PixelHeight)
			}
			b.WriteByte('\n')
		}
	}
	return b.Flush()
}

// lineEnd returns the column after the last cell that is not a default
// blank.
func lineEnd(screen *vt.Screen, row, width int) int {
	for col := width - 1; col >= 0; col-- {
		if cell, _ := screen.Cell(row, col); cell != vt.BlankCell {
			return col + 1
		}
	}
	return 0
}

// writeRow writes cells [0, end) of row, one styled run per change of
// attributes.
func (p *screenPrinter) writeRow(b *bufio.Writer, screen *vt.Screen, row, end int) {
	var (
		run   strings.Builder
		style vt.Cell
	)
	flush := func() {
		if run.Len() == 0 {
			return
		}
		b.WriteString(p.styled(run.String(), style))
		run.Reset()
	}
	for col := 0; col < end; col++ {
		cell, _ := screen.Cell(row, col)
		attrs := cell
		attrs.Rune = 0
		if col != 0 && attrs != style {
			flush()
		}
		style = attrs
		run.WriteRune(cell.Rune)
	}
	flush()
}

func (p *screenPrinter) styled(s string, attrs vt.Cell) string {
	if p.profile == termenv.Ascii || !attrs.HasAttributes() {
		return s
	}
	out := p.profile.String(s)
	if i, ok := attrs.Fg.Index(); ok {
		out = out.Foreground(p.profile.Color(strconv.Itoa(int(i))))
	}
	if i, ok := attrs.Bg.Index(); ok {
		out = out.Background(p.profile.Color(strconv.Itoa(int(i))))
	}
	if attrs.Bold {
		out = out.Bold()
	}
	if attrs.Italic {
		out = out.Italic()
	}
	if attrs.Underline {
		out = out.Underline()
	}
	return out.String()
}
