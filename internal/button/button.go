package button

import (
	"fmt"
	"sync/atomic"

	"github.com/sweeney/button-sensor/internal/tick"
)

// Two confirmed values, newest in bit 0, 1 = pressed.
const (
	historyIdle  uint8 = 0b11 // no click in progress
	historyClick uint8 = 0b10 // press then release
	historyBits  uint8 = 0b11
)

// Button tracks the debounced state of one input.
//
// Update must be called from a single goroutine. Read and the predicates may
// be called from any goroutine concurrently with Update.
type Button struct {
	pins     Pins
	clock    tick.Clock
	pin      PinID
	polarity Polarity
	timing   Timing

	flags atomic.Uint32 // Flags

	// Owned by the Update caller.
	bouncing       bool
	candidateSince tick.Tick
	lastTransition tick.Tick
	longPress      bool
	history        uint8
}

// New binds a button to pin and configures the pin with the polarity's
// default mode. The button starts released with no events raised.
func New(pins Pins, clock tick.Clock, pin PinID, polarity Polarity, timing Timing) (*Button, error) {
	return NewWithMode(pins, clock, pin, polarity, polarity.DefaultMode(), timing)
}

// NewWithMode is New with an explicit pin mode.
func NewWithMode(pins Pins, clock tick.Clock, pin PinID, polarity Polarity, mode PinMode, timing Timing) (*Button, error) {
	if err := pins.ConfigurePin(pin, mode); err != nil {
		return nil, fmt.Errorf("configure pin %d as %s: %w", pin, mode, err)
	}
	return &Button{
		pins:           pins,
		clock:          clock,
		pin:            pin,
		polarity:       polarity,
		timing:         timing,
		lastTransition: clock.Now(),
		history:        historyIdle,
	}, nil
}

// Pin returns the pin the button samples.
func (b *Button) Pin() PinID {
	return b.pin
}

// Polarity returns the electrical convention for "pressed".
func (b *Button) Polarity() Polarity {
	return b.polarity
}

// Timing returns the configured windows.
func (b *Button) Timing() Timing {
	return b.timing
}

// sample reads the pin and normalizes it: true = pressed.
func (b *Button) sample() bool {
	high := b.pins.ReadPin(b.pin)
	if b.polarity == ActiveHigh {
		return high
	}
	return !high
}

// Update samples the pin once and advances the state machine.
func (b *Button) Update() {
	now := b.clock.Now()
	raw := b.sample()
	pressed := Flags(b.flags.Load())&State != 0

	if raw == pressed {
		// Stable. Any pending candidate was a bounce.
		b.bouncing = false

		elapsed := now.Since(b.lastTransition)
		if !b.longPress && elapsed > b.timing.LongPress {
			b.longPress = true
			b.raise(LongEvent)
		}
		if elapsed > b.timing.DoubleClick {
			b.history = historyIdle
		}
		return
	}

	if !b.bouncing {
		b.candidateSince = now
		b.bouncing = true
	}

	threshold := b.timing.Release
	if raw {
		threshold = b.timing.Press
	}
	if now.Since(b.candidateSince) <= threshold {
		return
	}

	b.confirm(raw, now)
}

// confirm commits a candidate that outlasted its debounce window.
func (b *Button) confirm(pressed bool, now tick.Tick) {
	raised := Changed
	if b.history == historyClick {
		raised |= DoubleClick
	}
	b.history = (b.history<<1 | boolBit(pressed)) & historyBits

	b.lastTransition = now
	b.longPress = false
	b.bouncing = false

	if pressed {
		raised |= State
	}
	for {
		old := b.flags.Load()
		next := old&^uint32(State) | uint32(raised)
		if b.flags.CompareAndSwap(old, next) {
			return
		}
	}
}

func (b *Button) raise(f Flags) {
	b.flags.Or(uint32(f))
}

func boolBit(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

// Read returns the flags selected by mask and acknowledges the event flags in
// mask. Flags outside mask are left untouched. The check and the clear are a
// single atomic operation.
func (b *Button) Read(mask Flags) Flags {
	old := b.flags.And(^uint32(mask & Events))
	return Flags(old) & mask
}

// Peek returns all flags without acknowledging any.
func (b *Button) Peek() Flags {
	return Flags(b.flags.Load())
}

// IsPressed reports the debounced state.
func (b *Button) IsPressed() bool {
	return b.Peek()&State != 0
}

// The predicates below each consume the event flag they test. Pressed and
// Released share Changed, so testing one consumes the other; consumers that
// care about both directions should Read(State|Changed) once and branch.

// Changed reports a confirmed press or release.
func (b *Button) Changed() bool {
	return b.Read(Changed) == Changed
}

// Pressed reports a confirmed press.
func (b *Button) Pressed() bool {
	return b.Read(State|Changed) == State|Changed
}

// Released reports a confirmed release.
func (b *Button) Released() bool {
	return b.Read(State|Changed) == Changed
}

// LongPressed reports that the button has been held for the long-press window.
func (b *Button) LongPressed() bool {
	return b.Read(State|LongEvent) == State|LongEvent
}

// LongReleased reports that the button has stayed released for the long-press window.
func (b *Button) LongReleased() bool {
	return b.Read(State|LongEvent) == LongEvent
}

// DoubleClicked reports a completed double click.
func (b *Button) DoubleClicked() bool {
	return b.Read(DoubleClick) == DoubleClick
}
