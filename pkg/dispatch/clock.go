package dispatch

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// ManualClock is a settable clock for tests and replay.
type ManualClock struct {
	T time.Time
}

func (c *ManualClock) Now() time.Time {
	return c.T
}

func (c *ManualClock) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}
