package graphics

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProtocolMissing is returned by Capture.AssertProtocolExists.
var ErrProtocolMissing = errors.New("graphics protocol not found")

// BoundsError is returned by Capture.AssertAllWithin, and lists every region
// that was not fully contained in the expected area.
type BoundsError struct {
	Violations []Region
	Area       Area
}

func (e *BoundsError) Error() string {
	details := make([]string, len(e.Violations))
	for i, r := range e.Violations {
		details[i] = r.String()
	}
	return fmt.Sprintf(
		"found %d graphics region(s) outside area %s: [%s]",
		len(e.Violations),
		e.Area,
		strings.Join(details, ", "),
	)
}

// Capture is an immutable snapshot of graphics regions.
type Capture struct {
	regions []Region
}

// NewCapture copies regions into a new Capture. Region payloads are shared,
// and must not be modified.
func NewCapture(regions ...Region) *Capture {
	return &Capture{regions: append([]Region(nil), regions...)}
}

// Regions returns a copy of every region in the capture.
func (c *Capture) Regions() []Region {
	if c == nil {
		return nil
	}
	return append([]Region(nil), c.regions...)
}

// Len returns the number of regions.
func (c *Capture) Len() int {
	if c == nil {
		return 0
	}
	return len(c.regions)
}

// IsEmpty reports whether the capture holds no regions.
func (c *Capture) IsEmpty() bool { return c.Len() == 0 }

// RegionsInArea returns regions fully contained in area.
func (c *Capture) RegionsInArea(area Area) []Region {
	return c.filter(func(r Region) bool { return r.IsWithin(area) })
}

// RegionsOutsideArea returns regions not fully contained in area, including
// those that only partially overlap it.
func (c *Capture) RegionsOutsideArea(area Area) []Region {
	return c.filter(func(r Region) bool { return !r.IsWithin(area) })
}

// RegionsOverlapping returns regions that intersect area.
func (c *Capture) RegionsOverlapping(area Area) []Region {
	return c.filter(func(r Region) bool { return r.Overlaps(area) })
}

// ByProtocol returns the regions of a single protocol.
func (c *Capture) ByProtocol(p Protocol) []Region {
	return c.filter(func(r Region) bool { return r.Protocol == p })
}

// CountByProtocol returns the number of regions using protocol p.
func (c *Capture) CountByProtocol(p Protocol) int {
	return len(c.ByProtocol(p))
}

// AssertAllWithin returns a *BoundsError naming every region that is not
// fully inside area, or nil.
func (c *Capture) AssertAllWithin(area Area) error {
	if outside := c.RegionsOutsideArea(area); len(outside) != 0 {
		return &BoundsError{Area: area, Violations: outside}
	}
	return nil
}

// AssertProtocolExists returns an error wrapping ErrProtocolMissing if no
// region uses protocol p.
func (c *Capture) AssertProtocolExists(p Protocol) error {
	if c.CountByProtocol(p) == 0 {
		return fmt.Errorf("no %s graphics found: %w", p, ErrProtocolMissing)
	}
	return nil
}

// DiffersFrom reports whether the two captures hold different regions.
func (c *Capture) DiffersFrom(other *Capture) bool {
	if c.Len() != other.Len() {
		return true
	}
	for i := range c.Len() {
		if !c.regions[i].Equal(other.regions[i]) {
			return true
		}
	}
	return false
}

func (c *Capture) filter(fn func(Region) bool) []Region {
	if c == nil {
		return nil
	}
	var out []Region
	for _, r := range c.regions {
		if fn(r) {
			out = append(out, r)
		}
	}
	return out
}
