package clock

import "time"

// FakeClock is a manually driven Clock for tests that assert on payment and
// ownership timestamps. It only moves when Advance is called.
type FakeClock struct {
	now time.Time
}

// NewFakeClock starts the clock at t, normalized to UTC like the stored
// ledger timestamps.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
