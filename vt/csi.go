package vt

const tabWidth = 8

func (s *Screen) print(r rune) {
	s.cells[s.cursor.Row*s.width+s.cursor.Col] = s.pen.withRune(r)
	// no autowrap: the cursor stops at the last column
	if s.cursor.Col+1 < s.width {
		s.cursor.Col++
	}
}

// execute handles a C0 control byte.
func (s *Screen) execute(b byte) {
	switch b {
	case '\r':
		s.cursor.Col = 0
	case '\n', '\v', '\f':
		s.lineFeed()
	case '\t':
		s.cursor.Col = min((s.cursor.Col/tabWidth+1)*tabWidth, s.width-1)
	case '\b':
		if s.cursor.Col > 0 {
			s.cursor.Col--
		}
	}
}

// lineFeed moves down one row, stopping at the bottom. There is no
// scrollback.
func (s *Screen) lineFeed() {
	if s.cursor.Row+1 < s.height {
		s.cursor.Row++
	}
}

// moveTo sets the cursor, clamped to the grid.
func (s *Screen) moveTo(row, col int) {
	s.cursor.Row = max(0, min(row, s.height-1))
	s.cursor.Col = max(0, min(col, s.width-1))
}

func (s *Screen) saveCursor() {
	s.saved = savedCursor{pos: s.cursor, pen: s.pen, exists: true}
}

func (s *Screen) restoreCursor() {
	if !s.saved.exists {
		s.moveTo(0, 0)
		s.pen = BlankCell
		return
	}
	s.moveTo(s.saved.pos.Row, s.saved.pos.Col)
	s.pen = s.saved.pen
}

func (s *Screen) dispatchCSI(final byte) {
	p := &s.parser
	if p.intermediate != 0 {
		return
	}
	if p.marker != 0 {
		// private modes (cursor visibility, alternate screen, mouse
		// reporting, ...) do not affect the model
		return
	}
	n := p.paramAt(0, 1)
	switch final {
	case 'A':
		s.moveTo(s.cursor.Row-n, s.cursor.Col)
	case 'B', 'e':
		s.moveTo(s.cursor.Row+n, s.cursor.Col)
	case 'C', 'a':
		s.moveTo(s.cursor.Row, s.cursor.Col+n)
	case 'D':
		s.moveTo(s.cursor.Row, s.cursor.Col-n)
	case 'E':
		s.moveTo(s.cursor.Row+n, 0)
	case 'F':
		s.moveTo(s.cursor.Row-n, 0)
	case 'G', '`':
		s.moveTo(s.cursor.Row, n-1)
	case 'd':
		s.moveTo(n-1, s.cursor.Col)
	case 'H', 'f':
		s.moveTo(p.paramAt(0, 1)-1, p.paramAt(1, 1)-1)
	case 'J':
		s.eraseInDisplay(p.paramAt(0, 0))
	case 'K':
		s.eraseInLine(p.paramAt(0, 0))
	case 'X':
		s.blank(s.cursor.Row, s.cursor.Col, min(s.cursor.Col+n, s.width))
	case '@':
		s.insertChars(n)
	case 'P':
		s.deleteChars(n)
	case 'L':
		s.insertLines(n)
	case 'M':
		s.deleteLines(n)
	case 's':
		s.saveCursor()
	case 'u':
		s.restoreCursor()
	case 'm':
		s.sgr()
	}
}

// blank resets the cells [from, to) of row.
func (s *Screen) blank(row, from, to int) {
	line := s.cells[row*s.width : (row+1)*s.width]
	for i := from; i < to; i++ {
		line[i] = BlankCell
	}
}

func (s *Screen) blankRows(from, to int) {
	for row := from; row < to; row++ {
		s.blank(row, 0, s.width)
	}
}

func (s *Screen) eraseInDisplay(mode int) {
	row, col := s.cursor.Row, s.cursor.Col
	switch mode {
	case 0:
		s.blank(row, col, s.width)
		s.blankRows(row+1, s.height)
	case 1:
		s.blankRows(0, row)
		s.blank(row, 0, col+1)
	case 2, 3:
		s.blankRows(0, s.height)
	}
}

func (s *Screen) eraseInLine(mode int) {
	row, col := s.cursor.Row, s.cursor.Col
	switch mode {
	case 0:
		s.blank(row, col, s.width)
	case 1:
		s.blank(row, 0, col+1)
	case 2:
		s.blank(row, 0, s.width)
	}
}

func (s *Screen) insertChars(n int) {
	line := s.cells[s.cursor.Row*s.width : (s.cursor.Row+1)*s.width]
	col := s.cursor.Col
	n = min(n, s.width-col)
	copy(line[col+n:], line[col:])
	s.blank(s.cursor.Row, col, col+n)
}

func (s *Screen) deleteChars(n int) {
	line := s.cells[s.cursor.Row*s.width : (s.cursor.Row+1)*s.width]
	col := s.cursor.Col
	n = min(n, s.width-col)
	copy(line[col:], line[col+n:])
	s.blank(s.cursor.Row, s.width-n, s.width)
}

func (s *Screen) insertLines(n int) {
	row := s.cursor.Row
	n = min(n, s.height-row)
	copy(s.cells[(row+n)*s.width:], s.cells[row*s.width:(s.height-n)*s.width])
	s.blankRows(row, row+n)
	s.cursor.Col = 0
}

func (s *Screen) deleteLines(n int) {
	row := s.cursor.Row
	n = min(n, s.height-row)
	copy(s.cells[row*s.width:], s.cells[(row+n)*s.width:])
	s.blankRows(s.height-n, s.height)
	s.cursor.Col = 0
}

// sgr applies Select Graphic Rendition parameters to the pen.
func (s *Screen) sgr() {
	params := s.parser.params
	if len(params) == 0 {
		s.resetPen()
		return
	}
	for i := 0; i < len(params); i++ {
		switch v := params[i][0]; {
		case v == 0:
			s.resetPen()
		case v == 1:
			s.pen.Bold = true
		case v == 3:
			s.pen.Italic = true
		case v == 4:
			s.pen.Underline = true
		case v == 22:
			s.pen.Bold = false
		case v == 23:
			s.pen.Italic = false
		case v == 24:
			s.pen.Underline = false
		case v >= 30 && v <= 37:
			s.pen.Fg = Color(v - 30)
		case v == 39:
			s.pen.Fg = DefaultColor
		case v >= 40 && v <= 47:
			s.pen.Bg = Color(v - 40)
		case v == 49:
			s.pen.Bg = DefaultColor
		case v >= 90 && v <= 97:
			s.pen.Fg = Color(v - 90 + 8)
		case v >= 100 && v <= 107:
			s.pen.Bg = Color(v - 100 + 8)
		case v == 38, v == 48, v == 58:
			var (
				c  Color
				ok bool
			)
			c, ok, i = extendedColor(params, i)
			if !ok {
				continue
			}
			switch v {
			case 38:
				s.pen.Fg = c
			case 48:
				s.pen.Bg = c
			}
		}
	}
}

func (s *Screen) resetPen() {
	s.pen = BlankCell
}

// extendedColor decodes the 38/48/58 extended color forms, starting at
// params[i], returning the index of the last param consumed. Both the
// semicolon (38;5;n) and colon (38:5:n) forms are accepted. Direct colors
// (38;2;r;g;b) are consumed, but not representable in the palette model.
func extendedColor(params [][]int, i int) (Color, bool, int) {
	if values := params[i]; len(values) > 1 {
		switch values[1] {
		case 5:
			if len(values) > 2 && values[2] <= 255 {
				return Color(values[2]), true, i
			}
		}
		return DefaultColor, false, i
	}
	if i+1 >= len(params) {
		return DefaultColor, false, i
	}
	switch params[i+1][0] {
	case 5:
		if i+2 >= len(params) {
			return DefaultColor, false, len(params) - 1
		}
		if v := params[i+2][0]; v <= 255 {
			return Color(v), true, i + 2
		}
		return DefaultColor, false, i + 2
	case 2:
		return DefaultColor, false, min(i+4, len(params)-1)
	default:
		return DefaultColor, false, i + 1
	}
}
