package harness

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// KeyCode identifies a key. Non-negative values are characters (see Char),
// negative values are the named keys below and function keys (see F).
type KeyCode int32

const (
	KeyEnter KeyCode = -(iota + 1)
	KeyTab
	KeyEsc
	KeyBackspace
	KeyDelete
	KeyInsert
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
)

const functionKeyBase = -1000

// Char returns the KeyCode for a character.
func Char(r rune) KeyCode {
	if r < 0 || !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	return KeyCode(r)
}

// F returns the KeyCode for function key n. Only F1 to F12 produce input.
func F(n int) KeyCode {
	return KeyCode(functionKeyBase - min(max(n, 0), 255))
}

// Rune returns the character for a Char key.
func (k KeyCode) Rune() (rune, bool) {
	if k < 0 {
		return 0, false
	}
	return rune(k), true
}

// Function returns n for a key created with F(n).
func (k KeyCode) Function() (int, bool) {
	if k > functionKeyBase {
		return 0, false
	}
	return int(functionKeyBase - k), true
}

var keyNames = map[KeyCode]string{
	KeyEnter:     "enter",
	KeyTab:       "tab",
	KeyEsc:       "esc",
	KeyBackspace: "backspace",
	KeyDelete:    "delete",
	KeyInsert:    "insert",
	KeyUp:        "up",
	KeyDown:      "down",
	KeyRight:     "right",
	KeyLeft:      "left",
	KeyHome:      "home",
	KeyEnd:       "end",
	KeyPageUp:    "pageup",
	KeyPageDown:  "pagedown",
}

func (k KeyCode) String() string {
	if r, ok := k.Rune(); ok {
		return strconv.QuoteRune(r)
	}
	if n, ok := k.Function(); ok {
		return "f" + strconv.Itoa(n)
	}
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "KeyCode(" + strconv.Itoa(int(k)) + ")"
}

// keySequences are the bytes sent for unmodified named keys.
var keySequences = map[KeyCode]string{
	KeyEnter:     "\n",
	KeyTab:       "\t",
	KeyEsc:       "\x1b",
	KeyBackspace: "\x7f",
	KeyDelete:    "\x1b[3~",
	KeyInsert:    "\x1b[2~",
	KeyUp:        "\x1b[A",
	KeyDown:      "\x1b[B",
	KeyRight:     "\x1b[C",
	KeyLeft:      "\x1b[D",
	KeyHome:      "\x1b[H",
	KeyEnd:       "\x1b[F",
	KeyPageUp:    "\x1b[5~",
	KeyPageDown:  "\x1b[6~",
}

// functionKeySequences is indexed by n-1, for F1 to F12.
var functionKeySequences = [...]string{
	"\x1bOP", "\x1bOQ", "\x1bOR", "\x1bOS",
	"\x1b[15~", "\x1b[17~", "\x1b[18~", "\x1b[19~",
	"\x1b[20~", "\x1b[21~", "\x1b[23~", "\x1b[24~",
}

// Modifiers is a set of modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Has reports whether all of m2 are set in m.
func (m Modifiers) Has(m2 Modifiers) bool { return m&m2 == m2 }

func (m Modifiers) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for _, v := range [...]struct {
		mod  Modifiers
		name string
	}{{ModCtrl, "ctrl"}, {ModAlt, "alt"}, {ModShift, "shift"}, {ModMeta, "meta"}} {
		if m.Has(v.mod) {
			parts = append(parts, v.name)
		}
	}
	return strings.Join(parts, "+")
}

// EncodeKey returns the bytes a terminal sends for key with mods held.
//
// Modifiers only affect character keys. Ctrl maps letters to 0x01-0x1a and
// @ [ \ ] ^ _ ? to 0, 27, 28, 29, 30, 31 and 127, leaving other characters
// unchanged; it takes precedence over Alt, which prefixes the character with
// ESC. Function keys other than F1 to F12 encode to nothing.
func EncodeKey(key KeyCode, mods Modifiers) []byte {
	if r, ok := key.Rune(); ok {
		switch {
		case mods.Has(ModCtrl):
			return encodeCtrl(r)
		case mods.Has(ModAlt):
			return utf8.AppendRune([]byte{0x1b}, r)
		default:
			return utf8.AppendRune(nil, r)
		}
	}
	if n, ok := key.Function(); ok {
		if n < 1 || n > len(functionKeySequences) {
			return nil
		}
		return []byte(functionKeySequences[n-1])
	}
	if seq, ok := keySequences[key]; ok {
		return []byte(seq)
	}
	return nil
}

func encodeCtrl(r rune) []byte {
	switch {
	case r >= 'a' && r <= 'z':
		return []byte{byte(r-'a') + 1}
	case r >= 'A' && r <= 'Z':
		return []byte{byte(r-'A') + 1}
	}
	switch r {
	case '@':
		return []byte{0}
	case '[':
		return []byte{27}
	case '\\':
		return []byte{28}
	case ']':
		return []byte{29}
	case '^':
		return []byte{30}
	case '_':
		return []byte{31}
	case '?':
		return []byte{127}
	}
	return utf8.AppendRune(nil, r)
}

var keyAliases = map[string]KeyCode{
	"enter":     KeyEnter,
	"return":    KeyEnter,
	"tab":       KeyTab,
	"esc":       KeyEsc,
	"escape":    KeyEsc,
	"backspace": KeyBackspace,
	"delete":    KeyDelete,
	"del":       KeyDelete,
	"insert":    KeyInsert,
	"up":        KeyUp,
	"down":      KeyDown,
	"right":     KeyRight,
	"left":      KeyLeft,
	"home":      KeyHome,
	"end":       KeyEnd,
	"pageup":    KeyPageUp,
	"pgup":      KeyPageUp,
	"pagedown":  KeyPageDown,
	"pgdown":    KeyPageDown,
	"space":     Char(' '),
}

// ParseKey resolves a key name (case-insensitive), such as "enter", "pgup"
// or "f5", or a single character, which is taken literally.
func ParseKey(name string) (KeyCode, error) {
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		return Char(r), nil
	}
	normalized := strings.ToLower(name)
	if k, ok := keyAliases[normalized]; ok {
		return k, nil
	}
	if rest, ok := strings.CutPrefix(normalized, "f"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 1 && n <= len(functionKeySequences) {
			return F(n), nil
		}
	}
	return 0, fmt.Errorf("unknown key: %s", name)
}

// ParseModifiers resolves modifier names: shift, ctrl (or control), alt
// (or option), and meta (or super, cmd).
func ParseModifiers(names ...string) (Modifiers, error) {
	var m Modifiers
	for _, name := range names {
		switch strings.ToLower(name) {
		case "shift":
			m |= ModShift
		case "ctrl", "control":
			m |= ModCtrl
		case "alt", "option":
			m |= ModAlt
		case "meta", "super", "cmd":
			m |= ModMeta
		default:
			return 0, fmt.Errorf("unknown modifier: %s", name)
		}
	}
	return m, nil
}
