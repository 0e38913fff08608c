package harness

import (
	"strings"

	"github.com/joeycumines/go-tuitest/graphics"
	"github.com/joeycumines/go-tuitest/vt"
)

// Predicate is a check against a screen snapshot, used by wait operations.
// Implementations must not modify the screen.
type Predicate interface {
	Check(screen *vt.Screen) bool
}

// Condition adapts a function to a Predicate.
type Condition func(screen *vt.Screen) bool

func (c Condition) Check(screen *vt.Screen) bool { return c(screen) }

// All creates a Predicate that requires all the given predicates to hold.
func All(preds ...Predicate) Predicate {
	return Condition(func(screen *vt.Screen) bool {
		for _, p := range preds {
			if !p.Check(screen) {
				return false
			}
		}
		return true
	})
}

// Any creates a Predicate that requires at least one of the given
// predicates to hold.
func Any(preds ...Predicate) Predicate {
	return Condition(func(screen *vt.Screen) bool {
		for _, p := range preds {
			if p.Check(screen) {
				return true
			}
		}
		return false
	})
}

// Not negates a Predicate.
func Not(pred Predicate) Predicate {
	return Condition(func(screen *vt.Screen) bool {
		return !pred.Check(screen)
	})
}

// TextContains holds when text appears in the screen contents.
func TextContains(text string) Predicate {
	return Condition(func(screen *vt.Screen) bool {
		return screen.Contains(text)
	})
}

// RowContains holds when text appears within the given row.
func RowContains(row int, text string) Predicate {
	return Condition(func(screen *vt.Screen) bool {
		return strings.Contains(screen.RowContents(row), text)
	})
}

// CursorAt holds when the cursor is at pos.
func CursorAt(pos vt.Position) Predicate {
	return Condition(func(screen *vt.Screen) bool {
		return screen.Cursor() == pos
	})
}

// HasGraphics holds when at least one region of the protocol was captured.
func HasGraphics(p graphics.Protocol) Predicate {
	return Condition(func(screen *vt.Screen) bool {
		return screen.Graphics().CountByProtocol(p) > 0
	})
}
