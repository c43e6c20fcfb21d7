// Package clock provides the wall-clock which the virtual machine sees.
//
// Images carry no notion of where, or when, they are running.  We
// present them with local time computed from a fixed offset from UTC,
// a daylight-saving window expressed as a pair of day-of-year
// boundaries, and an optional adjustment in minutes.
package clock

import (
	"sync"
	"time"
)

// Clock holds our state.
type Clock struct {
	mu sync.Mutex

	// offset from UTC, in minutes.
	offset int

	// firstDay and lastDay bound the DST window, inclusive.
	firstDay int
	lastDay  int

	// adjust is added to the computed time, in minutes.
	adjust int

	// now returns the current time, it is replaced by tests.
	now func() time.Time
}

// New returns a clock with central-European defaults.
func New() *Clock {
	return &Clock{
		offset:   60,
		firstDay: 84,
		lastDay:  298,
		now:      time.Now,
	}
}

// SetOffsetAndDST updates the offset from UTC, and the daylight-saving window.
func (c *Clock) SetOffsetAndDST(offset, firstDay, lastDay int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.offset = offset
	c.firstDay = firstDay
	c.lastDay = lastDay
}

// SetTimeAdjustment sets an explicit adjustment, in minutes.
func (c *Clock) SetTimeAdjustment(minutes int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.adjust = minutes
}

// SetSource replaces the source of the current time.
func (c *Clock) SetSource(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

// Now returns the local time of the virtual machine.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now()

	minutes := c.offset
	if c.inDST(t) {
		minutes += 60
	}
	minutes += c.adjust

	return t.In(time.FixedZone("vm", minutes*60))
}

// InDST reports whether daylight saving is in effect at the given time.
func (c *Clock) InDST(t time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.inDST(t)
}

func (c *Clock) inDST(t time.Time) bool {
	local := t.UTC().Add(time.Duration(c.offset) * time.Minute)

	// Day-of-year is zero-based, to match the boundaries.
	day := local.YearDay() - 1
	return day >= c.firstDay && day <= c.lastDay
}
