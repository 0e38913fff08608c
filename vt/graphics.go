package vt

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/joeycumines/go-tuitest/graphics"
)

// The pixel to cell ratio used to convert Sixel and Kitty dimensions. It is
// fixed, and not derived from any font metric.
const (
	PixelsPerColumn = 8
	PixelsPerRow    = 6
)

const iterm2Prefix = "1337;File="

// CellsForPixels converts pixel dimensions to cells, rounding up.
func CellsForPixels(pixelWidth, pixelHeight int) (cols, rows int) {
	return ceilDiv(pixelWidth, PixelsPerColumn), ceilDiv(pixelHeight, PixelsPerRow)
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}

func sixelRegion(anchor Position, payload []byte) graphics.Region {
	w, h := sixelRasterSize(payload)
	return pixelRegion(graphics.Sixel, anchor, w, h, payload)
}

func kittyRegion(anchor Position, payload []byte) graphics.Region {
	w, h := kittySize(payload)
	return pixelRegion(graphics.Kitty, anchor, w, h, payload)
}

func pixelRegion(p graphics.Protocol, anchor Position, w, h int, payload []byte) graphics.Region {
	cols, rows := CellsForPixels(w, h)
	return graphics.Region{
		Protocol:    p,
		Position:    anchor,
		Bounds:      graphics.Area{Row: anchor.Row, Col: anchor.Col, Width: cols, Height: rows},
		PixelWidth:  w,
		PixelHeight: h,
		Raw:         bytes.Clone(payload),
	}
}

func iterm2Region(anchor Position, payload []byte) graphics.Region {
	w, h := iterm2Size(payload)
	return graphics.Region{
		Protocol: graphics.ITerm2,
		Position: anchor,
		Bounds:   graphics.Area{Row: anchor.Row, Col: anchor.Col, Width: w, Height: h},
		Raw:      bytes.Clone(payload),
	}
}

func hasITerm2Prefix(payload []byte) bool {
	return bytes.HasPrefix(payload, []byte(iterm2Prefix))
}

// sixelRasterSize extracts the pixel size from the raster attributes
// ("Pan;Pad;Ph;Pv, or the abbreviated "Ph;Pv). It returns 0x0 if there are
// no raster attributes, or either dimension is zero or unparsable.
func sixelRasterSize(payload []byte) (width, height int) {
	i := bytes.IndexByte(payload, '"')
	if i < 0 {
		return 0, 0
	}
	raster := payload[i+1:]
	end := 0
	for end < len(raster) && (raster[end] >= '0' && raster[end] <= '9' || raster[end] == ';') {
		end++
	}
	fields := strings.Split(string(raster[:end]), ";")
	var ws, hs string
	switch {
	case len(fields) >= 4:
		ws, hs = fields[2], fields[3]
	case len(fields) == 2:
		ws, hs = fields[0], fields[1]
	default:
		return 0, 0
	}
	return positivePair(ws, hs)
}

// kittySize extracts w= and h= from Kitty control data. Keys are delimited
// by commas or semicolons, and the first occurrence of each wins.
func kittySize(payload []byte) (width, height int) {
	var ws, hs string
	var haveW, haveH bool
	for _, field := range strings.FieldsFunc(string(payload), func(r rune) bool { return r == ',' || r == ';' }) {
		switch {
		case !haveW && strings.HasPrefix(field, "w="):
			ws, haveW = field[2:], true
		case !haveH && strings.HasPrefix(field, "h="):
			hs, haveH = field[2:], true
		}
		if haveW && haveH {
			break
		}
	}
	return positivePair(ws, hs)
}

// iterm2Size extracts width= and height= from the iTerm2 File= arguments,
// which are already in cells. "auto" and unparsable values are 0, and a px
// suffix is ignored.
func iterm2Size(payload []byte) (width, height int) {
	args := string(payload[len(iterm2Prefix):])
	if i := strings.IndexByte(args, ':'); i >= 0 {
		args = args[:i]
	}
	for _, arg := range strings.Split(args, ";") {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			continue
		}
		switch key {
		case "width":
			width = iterm2Dimension(value)
		case "height":
			height = iterm2Dimension(value)
		}
	}
	return width, height
}

func iterm2Dimension(value string) int {
	if value == "auto" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(value, "px"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// positivePair parses two dimensions, both or neither.
func positivePair(ws, hs string) (int, int) {
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0
	}
	return w, h
}
