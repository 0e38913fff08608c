package graphics

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func region(p Protocol, row, col, w, h int) Region {
	return Region{
		Protocol: p,
		Position: Position{Row: row, Col: col},
		Bounds:   Area{Row: row, Col: col, Width: w, Height: h},
	}
}

func TestProtocol_String(t *testing.T) {
	for _, tc := range []struct {
		p      Protocol
		name   string
		prefix string
	}{
		{Sixel, "Sixel", "\x1bPq"},
		{Kitty, "Kitty", "\x1b_G"},
		{ITerm2, "iTerm2", "\x1b]1337;File="},
	} {
		if got := tc.p.String(); got != tc.name {
			t.Errorf("%d: expected name %q, got %q", tc.p, tc.name, got)
		}
		if got := tc.p.Prefix(); got != tc.prefix {
			t.Errorf("%d: expected prefix %q, got %q", tc.p, tc.prefix, got)
		}
	}
	assert.Equal(t, "Protocol(9)", Protocol(9).String())
	assert.Empty(t, Protocol(9).Prefix())
}

func TestRegion_IsWithin(t *testing.T) {
	r := region(Sixel, 5, 5, 10, 10)
	assert.True(t, r.IsWithin(Area{0, 0, 20, 20}))
	assert.False(t, r.IsWithin(Area{0, 0, 10, 10}))
	assert.True(t, r.IsWithin(Area{5, 5, 10, 10}))
	assert.False(t, r.IsWithin(Area{6, 5, 10, 10}))
}

func TestRegion_Overlaps(t *testing.T) {
	r := region(Kitty, 5, 5, 10, 10)
	assert.True(t, r.Overlaps(Area{0, 0, 10, 10}))
	assert.True(t, r.Overlaps(Area{10, 10, 10, 10}))
	assert.False(t, r.Overlaps(Area{0, 0, 5, 5}))
	assert.True(t, r.Overlaps(Area{5, 5, 10, 10}))
	assert.False(t, r.Overlaps(Area{15, 0, 5, 30}))
}

func TestCapture_Empty(t *testing.T) {
	c := NewCapture()
	assert.True(t, c.IsEmpty())
	assert.Zero(t, c.Len())
	assert.NoError(t, c.AssertAllWithin(Area{0, 0, 1, 1}))

	var nilCapture *Capture
	assert.True(t, nilCapture.IsEmpty())
	assert.Nil(t, nilCapture.Regions())
}

func TestCapture_Filtering(t *testing.T) {
	inside := region(Sixel, 1, 1, 4, 4)
	partial := region(Kitty, 8, 8, 5, 5)
	outside := region(ITerm2, 20, 20, 2, 2)
	c := NewCapture(inside, partial, outside)
	area := Area{0, 0, 10, 10}

	if diff := cmp.Diff([]Region{inside}, c.RegionsInArea(area)); diff != "" {
		t.Errorf("RegionsInArea mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Region{partial, outside}, c.RegionsOutsideArea(area)); diff != "" {
		t.Errorf("RegionsOutsideArea mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Region{inside, partial}, c.RegionsOverlapping(area)); diff != "" {
		t.Errorf("RegionsOverlapping mismatch (-want +got):\n%s", diff)
	}
}

func TestCapture_ByProtocol(t *testing.T) {
	c := NewCapture(
		region(Sixel, 0, 0, 1, 1),
		region(Kitty, 1, 0, 1, 1),
		region(Sixel, 2, 0, 1, 1),
	)
	assert.Len(t, c.ByProtocol(Sixel), 2)
	assert.Equal(t, 1, c.CountByProtocol(Kitty))
	assert.Zero(t, c.CountByProtocol(ITerm2))
}

func TestCapture_AssertAllWithin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := NewCapture(region(Sixel, 0, 0, 10, 5), region(Kitty, 5, 5, 5, 5))
		require.NoError(t, c.AssertAllWithin(Area{0, 0, 80, 24}))
	})

	t.Run("failure lists every violator", func(t *testing.T) {
		c := NewCapture(
			region(Sixel, 0, 0, 10, 5),
			region(Kitty, 20, 70, 20, 10),
			region(ITerm2, 30, 0, 1, 1),
		)
		err := c.AssertAllWithin(Area{0, 0, 80, 24})
		require.Error(t, err)

		var be *BoundsError
		require.True(t, errors.As(err, &be))
		assert.Len(t, be.Violations, 2)
		assert.Equal(t, Area{0, 0, 80, 24}, be.Area)
		assert.Contains(t, err.Error(), "found 2 graphics region(s)")
		assert.Contains(t, err.Error(), "Kitty at (20, 70)")
		assert.Contains(t, err.Error(), "iTerm2 at (30, 0)")
		assert.NotContains(t, err.Error(), "Sixel")
	})
}

func TestCapture_AssertProtocolExists(t *testing.T) {
	c := NewCapture(region(Kitty, 0, 0, 1, 1))
	assert.NoError(t, c.AssertProtocolExists(Kitty))

	err := c.AssertProtocolExists(Sixel)
	require.ErrorIs(t, err, ErrProtocolMissing)
	assert.Contains(t, err.Error(), "no Sixel graphics found")
}

func TestCapture_DiffersFrom(t *testing.T) {
	a := NewCapture(region(Sixel, 0, 0, 1, 1))
	b := NewCapture(region(Sixel, 0, 0, 1, 1))
	assert.False(t, a.DiffersFrom(b))

	c := NewCapture(region(Sixel, 0, 1, 1, 1))
	assert.True(t, a.DiffersFrom(c))
	assert.True(t, a.DiffersFrom(NewCapture()))

	withRaw := region(Sixel, 0, 0, 1, 1)
	withRaw.Raw = []byte("#0")
	assert.True(t, a.DiffersFrom(NewCapture(withRaw)))
}

func TestCapture_RegionsIsACopy(t *testing.T) {
	c := NewCapture(region(Sixel, 0, 0, 1, 1))
	rs := c.Regions()
	rs[0].Bounds.Width = 99
	assert.Equal(t, 1, c.Regions()[0].Bounds.Width)
}
