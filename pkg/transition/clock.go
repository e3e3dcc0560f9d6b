package transition

import "time"

// DefaultFPS is the tick rate hosts use when they have no display loop of
// their own (headless streaming, the terminal player).
const DefaultFPS = 60

// Clock supplies ticks and timestamps to a stepping loop. The engine never
// reads time on its own; everything flows through a Clock so tests can run
// transitions instantly and deterministically.
type Clock interface {
	// Tick delivers the times at which the host should call Step.
	Tick() <-chan time.Time
	// Now returns the current time by this clock.
	Now() time.Time
	// Stop releases the clock's resources. No more ticks are delivered.
	Stop()
}

// TickerClock is the real-time clock, ticking at a fixed rate.
type TickerClock struct {
	ticker *time.Ticker
}

// NewTickerClock creates a real-time clock at the given frame rate.
// Non-positive fps falls back to DefaultFPS.
func NewTickerClock(fps int) *TickerClock {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &TickerClock{ticker: time.NewTicker(time.Second / time.Duration(fps))}
}

// Tick returns the underlying ticker channel.
func (c *TickerClock) Tick() <-chan time.Time { return c.ticker.C }

// Now returns the wall-clock time.
func (c *TickerClock) Now() time.Time { return time.Now() }

// Stop stops the ticker.
func (c *TickerClock) Stop() { c.ticker.Stop() }

// ManualClock is a test clock advanced explicitly by the caller. Advance
// moves time forward and delivers one tick; nothing happens between calls.
type ManualClock struct {
	now   time.Time
	ticks chan time.Time
}

// NewManualClock creates a manual clock starting at the given time.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start, ticks: make(chan time.Time, 1)}
}

// Advance moves the clock forward by d and delivers a tick. If the previous
// tick was never consumed it is replaced, mirroring how a display loop
// coalesces missed frames.
func (c *ManualClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
	select {
	case <-c.ticks:
	default:
	}
	c.ticks <- c.now
}

// Tick returns the manual tick channel.
func (c *ManualClock) Tick() <-chan time.Time { return c.ticks }

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time { return c.now }

// Stop is a no-op for manual clocks.
func (c *ManualClock) Stop() {}
