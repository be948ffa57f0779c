package gonogo

import "time"

// Clock is the per-trial elapsed-time source. Elapsed is measured from the
// last Start call and never decreases between Starts.
type Clock interface {
	Start()
	Origin() time.Time
	Elapsed() time.Duration
	Sleep(d time.Duration)
}

// ClockFactory creates a fresh Clock for every trial.
type ClockFactory func() Clock

type monotonicClock struct {
	origin time.Time
}

// NewClock returns a Clock backed by the runtime's monotonic clock reading.
func NewClock() Clock {
	c := &monotonicClock{}
	c.Start()
	return c
}

func (c *monotonicClock) Start() {
	c.origin = time.Now()
}

func (c *monotonicClock) Origin() time.Time {
	return c.origin
}

func (c *monotonicClock) Elapsed() time.Duration {
	return time.Since(c.origin)
}

func (c *monotonicClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
