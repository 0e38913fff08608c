package vt

import (
	"bytes"
	"unicode/utf8"
)

type parserState uint8

const (
	stateGround parserState = iota
	stateEscape
	stateEscapeIntermediate
	stateCSI
	stateOSC
	stateDCSEntry
	stateDCSPassthrough
	stateAPC
	stateIgnoreString
)

const (
	maxParams     = 32
	maxParamBytes = 256
	maxParam      = 1<<16 - 1
	// payloads beyond this are truncated, the sequence still completes
	maxPayload = 32 << 20
)

// parser holds the continuation state between Feed calls.
type parser struct {
	params [][]int
	// raw parameter bytes of the current CSI or DCS
	raw []byte
	// payload of the current OSC, DCS, or APC string
	payload []byte
	utf8buf [utf8.UTFMax]byte
	// anchor is the cursor when the current string sequence began
	anchor Position
	// number of bytes pending in utf8buf
	utf8len int
	state   parserState
	// private marker (one of "<=>?") or intermediate byte of a CSI or DCS
	marker       byte
	intermediate byte
	// set after ESC, while inside a string sequence
	stringEsc bool
	sixel     bool
}

func (s *Screen) advance(b byte) {
	p := &s.parser

	// string sequences end with ST (ESC \), or BEL for OSC
	if p.stringEsc {
		p.stringEsc = false
		s.finishString()
		if b == '\\' {
			p.state = stateGround
			return
		}
		s.enterEscape()
		s.advance(b)
		return
	}

	switch p.state {
	case stateGround:
		s.ground(b)

	case stateEscape:
		s.escape(b)

	case stateEscapeIntermediate:
		switch {
		case b == 0x1b:
			s.enterEscape()
		case b < 0x20:
			s.execute(b)
		case b < 0x30:
			// more intermediates
		default:
			// charset designation and friends have no effect on the model
			p.state = stateGround
		}

	case stateCSI:
		s.csi(b)

	case stateOSC:
		switch b {
		case 0x07:
			s.finishString()
			p.state = stateGround
		case 0x1b:
			p.stringEsc = true
		case 0x18, 0x1a:
			p.state = stateGround
		default:
			p.collect(b)
		}

	case stateDCSEntry:
		switch {
		case b == 0x1b:
			s.enterEscape()
		case b == 0x18 || b == 0x1a:
			p.state = stateGround
		case b < 0x20:
			// ignored
		case b < 0x30:
			p.intermediate = b
		case b < 0x40:
			p.param(b)
		default:
			p.sixel = b == 'q' && p.intermediate == 0
			p.payload = p.payload[:0]
			p.state = stateDCSPassthrough
		}

	case stateDCSPassthrough, stateAPC, stateIgnoreString:
		switch b {
		case 0x1b:
			p.stringEsc = true
		case 0x18, 0x1a:
			p.state = stateGround
		default:
			if p.state != stateIgnoreString {
				p.collect(b)
			}
		}
	}
}

func (s *Screen) ground(b byte) {
	p := &s.parser
	if b >= 0x80 || p.utf8len != 0 {
		if b >= 0x80 && b < 0xc0 && p.utf8len != 0 || b >= 0xc0 && p.utf8len == 0 {
			p.utf8buf[p.utf8len] = b
			p.utf8len++
			if utf8.FullRune(p.utf8buf[:p.utf8len]) {
				r, _ := utf8.DecodeRune(p.utf8buf[:p.utf8len])
				p.utf8len = 0
				s.print(r)
			}
			return
		}
		// invalid or interrupted sequence
		p.utf8len = 0
		s.print(utf8.RuneError)
		if b >= 0x80 {
			if b >= 0xc0 {
				s.ground(b)
			}
			return
		}
	}
	switch {
	case b == 0x1b:
		s.enterEscape()
	case b < 0x20 || b == 0x7f:
		s.execute(b)
	default:
		s.print(rune(b))
	}
}

func (s *Screen) escape(b byte) {
	p := &s.parser
	p.state = stateGround
	switch b {
	case 0x1b:
		s.enterEscape()
	case '[':
		p.reset()
		p.state = stateCSI
	case ']':
		p.reset()
		p.anchor = s.cursor
		p.state = stateOSC
	case 'P':
		p.reset()
		p.anchor = s.cursor
		p.state = stateDCSEntry
	case '_':
		p.reset()
		p.anchor = s.cursor
		p.state = stateAPC
	case 'X', '^':
		p.reset()
		p.state = stateIgnoreString
	case '7':
		s.saveCursor()
	case '8':
		s.restoreCursor()
	case 'D':
		s.lineFeed()
	case 'E':
		s.cursor.Col = 0
		s.lineFeed()
	case 'M':
		s.moveTo(s.cursor.Row-1, s.cursor.Col)
	case 'c':
		s.init()
	default:
		switch {
		case b < 0x20:
			s.execute(b)
			p.state = stateEscape
		case b < 0x30:
			p.state = stateEscapeIntermediate
		}
	}
}

func (s *Screen) csi(b byte) {
	p := &s.parser
	switch {
	case b == 0x1b:
		s.enterEscape()
	case b == 0x18 || b == 0x1a:
		p.state = stateGround
	case b < 0x20:
		s.execute(b)
	case b < 0x30:
		p.intermediate = b
	case b < 0x40:
		p.param(b)
	case b < 0x7f:
		p.parseParams()
		p.state = stateGround
		s.dispatchCSI(b)
	}
}

func (s *Screen) enterEscape() {
	s.parser.state = stateEscape
	s.parser.stringEsc = false
}

// finishString dispatches a terminated OSC, DCS, or APC string.
func (s *Screen) finishString() {
	p := &s.parser
	switch p.state {
	case stateOSC:
		s.dispatchOSC(p.payload)
	case stateDCSPassthrough:
		if p.sixel {
			s.addRegion(sixelRegion(p.anchor, p.payload))
		}
	case stateAPC:
		if len(p.payload) != 0 && p.payload[0] == 'G' {
			s.addRegion(kittyRegion(p.anchor, p.payload[1:]))
		}
	}
	p.payload = nil
	p.sixel = false
	p.state = stateGround
}

func (s *Screen) dispatchOSC(payload []byte) {
	if hasITerm2Prefix(payload) {
		s.addRegion(iterm2Region(s.parser.anchor, payload))
		return
	}
	// window title
	for i, c := range payload {
		if c != ';' {
			continue
		}
		if cmd := string(payload[:i]); cmd == "0" || cmd == "2" {
			s.title = string(payload[i+1:])
		}
		return
	}
}

func (p *parser) reset() {
	p.params = p.params[:0]
	p.raw = p.raw[:0]
	p.payload = nil
	p.marker = 0
	p.intermediate = 0
	p.sixel = false
	p.stringEsc = false
}

func (p *parser) collect(b byte) {
	if len(p.payload) < maxPayload {
		p.payload = append(p.payload, b)
	}
}

// param collects a parameter byte, in the range 0x30-0x3f.
func (p *parser) param(b byte) {
	if len(p.raw) == 0 && b >= '<' && b <= '?' && p.marker == 0 {
		p.marker = b
		return
	}
	if len(p.raw) < maxParamBytes {
		p.raw = append(p.raw, b)
	}
}

// parseParams splits the collected parameter bytes into params, each holding
// one or more colon separated values. Missing values are zero.
func (p *parser) parseParams() {
	p.params = p.params[:0]
	if len(p.raw) == 0 {
		return
	}
	for _, field := range bytes.Split(p.raw, []byte{';'}) {
		if len(p.params) == maxParams {
			break
		}
		var values []int
		for _, part := range bytes.Split(field, []byte{':'}) {
			values = append(values, atoi(part))
		}
		p.params = append(p.params, values)
	}
}

func atoi(b []byte) int {
	var n int
	for _, c := range b {
		if c < '0' || c > '9' {
			continue
		}
		n = min(n*10+int(c-'0'), maxParam)
	}
	return n
}

// paramAt returns the first value of param i, or def when missing or zero.
func (p *parser) paramAt(i, def int) int {
	if i >= len(p.params) || p.params[i][0] == 0 {
		return def
	}
	return p.params[i][0]
}
