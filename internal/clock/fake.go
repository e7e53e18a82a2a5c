package clock

import "time"

// FakeClock is a Clock pinned to an explicit instant. Tests advance it by
// hand to cross quota months and reading expiry windows.
type FakeClock struct {
	now time.Time
}

var _ Clock = (*FakeClock)(nil)

// NewFakeClock pins the clock to t, normalized to UTC.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

// Now returns the pinned instant.
func (c *FakeClock) Now() time.Time { return c.now }

// Advance moves the pinned instant forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
