// Package tick provides a free-running monotonic tick counter.
// The counter is advanced by a periodic driver and read by consumers that
// measure elapsed time by modular subtraction, so wraparound is harmless.
package tick

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultPeriod is the tick period used when none is configured.
const DefaultPeriod = time.Millisecond

// MaxSpan is the longest interval that Since measures unambiguously. Any
// window compared against Since must not exceed it.
const MaxSpan Tick = 1<<31 - 1

// Tick is one value of the counter. At the default period it wraps after
// roughly 49.7 days.
type Tick uint32

// Since returns the number of ticks elapsed from earlier to t, modulo 2^32.
func (t Tick) Since(earlier Tick) Tick {
	return t - earlier
}

// Clock reports the current tick.
type Clock interface {
	Now() Tick
}

// Source is a monotonic counter advanced once per fixed period.
type Source struct {
	n      atomic.Uint32
	period time.Duration
}

// NewSource creates a Source starting at zero.
// A non-positive period falls back to DefaultPeriod.
func NewSource(period time.Duration) *Source {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Source{period: period}
}

// Advance increments the counter by one.
func (s *Source) Advance() {
	s.n.Add(1)
}

// Now returns the current counter value.
// Safe to call concurrently with Advance; the value is never torn.
func (s *Source) Now() Tick {
	return Tick(s.n.Load())
}

// Period returns the fixed duration of one tick.
func (s *Source) Period() time.Duration {
	return s.period
}

// Ticks converts d into whole ticks, rounding down.
// Any positive duration shorter than one period counts as one tick, and
// durations longer than MaxSpan saturate at MaxSpan.
func (s *Source) Ticks(d time.Duration) Tick {
	if d <= 0 {
		return 0
	}
	n := d / s.period
	switch {
	case n == 0:
		return 1
	case n > time.Duration(MaxSpan):
		return MaxSpan
	}
	return Tick(n)
}

// Duration converts n ticks back into wall time.
func (s *Source) Duration(n Tick) time.Duration {
	return time.Duration(n) * s.period
}

// Run advances the counter once per period until ctx is done.
func (s *Source) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Advance()
		}
	}
}
