package harness

import (
	"testing"

	"github.com/joeycumines/go-tuitest/graphics"
	"github.com/joeycumines/go-tuitest/vt"
	"github.com/stretchr/testify/assert"
)

func TestPredicates(t *testing.T) {
	screen := vt.MustNew(20, 5)
	screen.Feed([]byte("hello world\r\n\x1b[3;1Hthird row\x1b[2;5H"))

	yes := TextContains("hello")
	no := TextContains("absent")

	for _, tc := range []struct {
		name string
		pred Predicate
		want bool
	}{
		{"text", yes, true},
		{"text missing", no, false},
		{"text spans rows", TextContains("world third"), false},
		{"row", RowContains(2, "third"), true},
		{"wrong row", RowContains(0, "third"), false},
		{"cursor", CursorAt(vt.Position{Row: 1, Col: 4}), true},
		{"cursor elsewhere", CursorAt(vt.Position{}), false},
		{"all", All(yes, RowContains(2, "row")), true},
		{"all with false", All(yes, no), false},
		{"all empty", All(), true},
		{"any", Any(no, yes), true},
		{"any none", Any(no), false},
		{"any empty", Any(), false},
		{"not", Not(no), true},
		{"graphics absent", HasGraphics(graphics.Sixel), false},
		{"condition", Condition(func(s *vt.Screen) bool { return s.Title() == "" }), true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.pred.Check(screen))
		})
	}

	screen.Feed([]byte("\x1b_Gw=16,h=12;AAAA\x1b\\"))
	assert.True(t, HasGraphics(graphics.Kitty).Check(screen))
	assert.False(t, HasGraphics(graphics.ITerm2).Check(screen))
}
