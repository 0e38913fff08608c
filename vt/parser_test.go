package vt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_CursorPositioning(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		want  Position
	}{
		{"CUP one based", "\x1b[5;10H", Position{Row: 4, Col: 9}},
		{"HVP", "\x1b[2;3f", Position{Row: 1, Col: 2}},
		{"CUP defaults", "\x1b[5;10H\x1b[H", Position{}},
		{"CUP zero params", "\x1b[0;0H", Position{}},
		{"CUP row only", "\x1b[7H", Position{Row: 6}},
		{"CUP column only", "\x1b[;7H", Position{Col: 6}},
		{"CUP clamped", "\x1b[100;200H", Position{Row: 23, Col: 79}},
		{"CUU saturates", "\x1b[3;3H\x1b[10A", Position{Row: 0, Col: 2}},
		{"CUD", "\x1b[2B", Position{Row: 2}},
		{"CUD saturates", "\x1b[99B", Position{Row: 23}},
		{"CUF", "\x1b[5C", Position{Col: 5}},
		{"CUF saturates", "\x1b[500C", Position{Col: 79}},
		{"CUB saturates", "\x1b[1;5H\x1b[9D", Position{}},
		{"CUB default", "\x1b[1;5H\x1b[D", Position{Col: 3}},
		{"CNL", "\x1b[1;5H\x1b[2E", Position{Row: 2}},
		{"CPL", "\x1b[5;5H\x1b[2F", Position{Row: 2}},
		{"CHA", "\x1b[3;3H\x1b[10G", Position{Row: 2, Col: 9}},
		{"VPA", "\x1b[3;3H\x1b[10d", Position{Row: 9, Col: 2}},
		{"CR", "abc\r", Position{}},
		{"LF keeps column", "abc\n", Position{Row: 1, Col: 3}},
		{"LF clamped", "\x1b[24;1H\n\n", Position{Row: 23}},
		{"TAB", "\t", Position{Col: 8}},
		{"TAB from middle", "abc\t\t", Position{Col: 16}},
		{"TAB clamped", "\x1b[1;78H\t", Position{Col: 79}},
		{"BS", "ab\b", Position{Col: 1}},
		{"BS saturates", "\b\b", Position{}},
		{"IND", "\x1bD", Position{Row: 1}},
		{"NEL", "ab\x1bE", Position{Row: 1}},
		{"RI saturates", "\x1bM", Position{}},
		{"RI", "\x1b[4;2H\x1bM", Position{Row: 2, Col: 1}},
		{"DECSC DECRC", "\x1b[4;4H\x1b7\x1b[H\x1b8", Position{Row: 3, Col: 3}},
		{"CSI s u", "\x1b[6;2H\x1b[s\x1b[H\x1b[u", Position{Row: 5, Col: 1}},
		{"restore without save", "\x1b[6;2H\x1b8", Position{}},
		{"private mode ignored", "ab\x1b[?25l\x1b[?1049h", Position{Col: 2}},
		{"charset designation consumed", "\x1b(Bab", Position{Col: 2}},
		{"control inside CSI", "\x1b[2\r;3H", Position{Row: 1, Col: 2}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newScreen(t, 80, 24)
			s.Feed([]byte(tc.input))
			assert.Equal(t, tc.want, s.Cursor())
		})
	}
}

func TestParser_CharsetDesignationNotPrinted(t *testing.T) {
	s := newScreen(t, 10, 1)
	s.Feed([]byte("\x1b(Bab\x1b)0c"))
	assert.Equal(t, "abc", s.TextAt(0, 0, 3))
}

func TestParser_SplitAcrossFeeds(t *testing.T) {
	input := []byte("x\x1b[5;10Hy\x1b[31mz\xe2\x82\xac\x1bPq\"1;1;16;12#0~\x1b\\")
	whole := newScreen(t, 80, 24)
	whole.Feed(input)

	for split := 0; split <= len(input); split++ {
		s := newScreen(t, 80, 24)
		s.Feed(input[:split])
		s.Feed(input[split:])
		require.Equal(t, whole.Contents(), s.Contents(), "split at %d", split)
		require.Equal(t, whole.Cursor(), s.Cursor(), "split at %d", split)
		require.Equal(t, whole.Regions(), s.Regions(), "split at %d", split)
	}

	// byte at a time
	s := newScreen(t, 80, 24)
	for _, b := range input {
		s.Feed([]byte{b})
	}
	assert.Equal(t, whole.Contents(), s.Contents())
	assert.Equal(t, whole.Regions(), s.Regions())
	c, _ := s.Cell(4, 10)
	assert.Equal(t, Cell{Rune: 'z', Fg: 1, Bg: DefaultColor}, c)
	r, _ := s.CharAt(4, 11)
	assert.Equal(t, '€', r)
}

func TestParser_UTF8(t *testing.T) {
	s := newScreen(t, 10, 1)
	s.Feed([]byte("héllo"))
	assert.Equal(t, "héllo", s.TextAt(0, 0, 5))

	s = newScreen(t, 10, 1)
	s.Feed([]byte{'a', 0xff, 'b', 0xe2, 0x82, 'c'})
	assert.Equal(t, "a�b�c", s.TextAt(0, 0, 5))
}

func TestParser_Erase(t *testing.T) {
	fill := "abcde\r\nfghij\r\nklmno"
	for _, tc := range []struct {
		name  string
		input string
		want  string
	}{
		{"ED 0", "\x1b[2;3H\x1b[J", "abcde\nfg   \n     "},
		{"ED 1", "\x1b[2;3H\x1b[1J", "     \n   ij\nklmno"},
		{"ED 2", "\x1b[2J", "     \n     \n     "},
		{"ED 3", "\x1b[3J", "     \n     \n     "},
		{"EL 0", "\x1b[2;3H\x1b[K", "abcde\nfg   \nklmno"},
		{"EL 1", "\x1b[2;3H\x1b[1K", "abcde\n   ij\nklmno"},
		{"EL 2", "\x1b[2;3H\x1b[2K", "abcde\n     \nklmno"},
		{"ECH", "\x1b[1;2H\x1b[2X", "a  de\nfghij\nklmno"},
		{"ICH", "\x1b[1;2H\x1b[2@", "a  bc\nfghij\nklmno"},
		{"DCH", "\x1b[1;2H\x1b[2P", "ade  \nfghij\nklmno"},
		{"IL", "\x1b[2;3H\x1b[L", "abcde\n     \nfghij"},
		{"DL", "\x1b[1;3H\x1b[M", "fghij\nklmno\n     "},
		{"RIS", "\x1bc", "     \n     \n     "},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newScreen(t, 5, 3)
			s.Feed([]byte(fill + tc.input))
			assert.Equal(t, tc.want, s.Contents())
		})
	}
}

func TestParser_SGR(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		want  Cell
	}{
		{"plain", "x", Cell{Rune: 'x', Fg: DefaultColor, Bg: DefaultColor}},
		{"fg", "\x1b[31mx", Cell{Rune: 'x', Fg: 1, Bg: DefaultColor}},
		{"bg", "\x1b[42mx", Cell{Rune: 'x', Fg: DefaultColor, Bg: 2}},
		{"bright fg", "\x1b[97mx", Cell{Rune: 'x', Fg: 15, Bg: DefaultColor}},
		{"bright bg", "\x1b[100mx", Cell{Rune: 'x', Fg: DefaultColor, Bg: 8}},
		{"256 fg", "\x1b[38;5;200mx", Cell{Rune: 'x', Fg: 200, Bg: DefaultColor}},
		{"256 bg colon", "\x1b[48:5:17mx", Cell{Rune: 'x', Fg: DefaultColor, Bg: 17}},
		{"256 out of range", "\x1b[38;5;300mx", Cell{Rune: 'x', Fg: DefaultColor, Bg: DefaultColor}},
		{"truecolor skipped", "\x1b[38;2;1;2;3;1mx", Cell{Rune: 'x', Fg: DefaultColor, Bg: DefaultColor, Bold: true}},
		{"styles", "\x1b[1;3;4mx", Cell{Rune: 'x', Fg: DefaultColor, Bg: DefaultColor, Bold: true, Italic: true, Underline: true}},
		{"style off", "\x1b[1;3;4m\x1b[22;23;24mx", Cell{Rune: 'x', Fg: DefaultColor, Bg: DefaultColor}},
		{"default colors", "\x1b[31;41m\x1b[39;49mx", Cell{Rune: 'x', Fg: DefaultColor, Bg: DefaultColor}},
		{"empty resets", "\x1b[1;31m\x1b[mx", Cell{Rune: 'x', Fg: DefaultColor, Bg: DefaultColor}},
		{"zero resets", "\x1b[1;31m\x1b[0mx", Cell{Rune: 'x', Fg: DefaultColor, Bg: DefaultColor}},
		{"reset then set", "\x1b[1;31m\x1b[0;32mx", Cell{Rune: 'x', Fg: 2, Bg: DefaultColor}},
		{"restored with cursor", "\x1b[1m\x1b7\x1b[0m\x1b8x", Cell{Rune: 'x', Fg: DefaultColor, Bg: DefaultColor, Bold: true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newScreen(t, 10, 1)
			s.Feed([]byte(tc.input))
			c, ok := s.Cell(0, 0)
			require.True(t, ok)
			assert.Equal(t, tc.want, c)
		})
	}
}

func TestParser_EraseClearsAttributes(t *testing.T) {
	s := newScreen(t, 3, 1)
	s.Feed([]byte("\x1b[1;31mabc\x1b[0m\r\x1b[K"))
	c, _ := s.Cell(0, 1)
	assert.Equal(t, BlankCell, c)
	assert.False(t, c.HasAttributes())
}

func TestColor(t *testing.T) {
	i, ok := PaletteColor(7).Index()
	assert.True(t, ok)
	assert.Equal(t, uint8(7), i)
	_, ok = DefaultColor.Index()
	assert.False(t, ok)
	assert.Equal(t, "default", DefaultColor.String())
	assert.Equal(t, "200", Color(200).String())
}
