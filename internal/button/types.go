// Package button implements debouncing and gesture recognition for a single
// mechanical button sampled on a free-running tick counter.
// This package has NO hardware dependencies: pins and time are injected.
package button

import (
	"time"

	"github.com/sweeney/button-sensor/internal/tick"
)

// Flags is the consumer-visible state of a button.
type Flags uint8

const (
	// State is the debounced state, set while the button is pressed.
	State Flags = 1 << iota
	// Changed is raised on every confirmed press or release.
	Changed
	// LongEvent is raised once the current state has held for the long-press window.
	LongEvent
	// DoubleClick is raised on a press that completes press-release-press.
	DoubleClick
)

// Events is the set of flags cleared by Read. State is never cleared.
const Events = Changed | LongEvent | DoubleClick

// Polarity is the electrical level that means "pressed".
type Polarity int

const (
	// ActiveLow buttons pull the line LOW when pressed (internal pull-up).
	ActiveLow Polarity = iota
	// ActiveHigh buttons drive the line HIGH when pressed.
	ActiveHigh
)

func (p Polarity) String() string {
	if p == ActiveHigh {
		return "active-high"
	}
	return "active-low"
}

// DefaultMode returns the pin mode that suits the polarity.
func (p Polarity) DefaultMode() PinMode {
	if p == ActiveHigh {
		return ModeInput
	}
	return ModeInputPullUp
}

// PinID identifies an input to the pin layer. Its meaning is opaque here.
type PinID int

// PinMode selects input bias.
type PinMode int

const (
	ModeInput PinMode = iota
	ModeInputPullUp
	ModeInputPullDown
)

func (m PinMode) String() string {
	switch m {
	case ModeInputPullUp:
		return "input-pullup"
	case ModeInputPullDown:
		return "input-pulldown"
	default:
		return "input"
	}
}

// Pins is the pin layer the engine samples.
type Pins interface {
	// ConfigurePin sets the input mode of pin.
	ConfigurePin(pin PinID, mode PinMode) error

	// ReadPin returns the raw electrical level of pin (true = HIGH).
	ReadPin(pin PinID) bool
}

// Timing holds the debounce and gesture windows, in ticks.
// Every comparison is strict: a window of N ticks is exceeded at N+1.
type Timing struct {
	Press       tick.Tick // stable time before registering a press
	Release     tick.Tick // stable time before registering a release
	LongPress   tick.Tick // hold time for a long press or long release
	DoubleClick tick.Tick // maximum click or gap length within a double click
}

// Default window lengths.
const (
	DefaultPress       = 10 * time.Millisecond
	DefaultRelease     = 50 * time.Millisecond
	DefaultLongPress   = 1000 * time.Millisecond
	DefaultDoubleClick = 250 * time.Millisecond
)

// DefaultTiming converts the default windows into ticks of src.
func DefaultTiming(src *tick.Source) Timing {
	return NewTiming(src, DefaultPress, DefaultRelease, DefaultLongPress, DefaultDoubleClick)
}

// NewTiming converts wall-time windows into ticks of src.
func NewTiming(src *tick.Source, press, release, longPress, doubleClick time.Duration) Timing {
	return Timing{
		Press:       src.Ticks(press),
		Release:     src.Ticks(release),
		LongPress:   src.Ticks(longPress),
		DoubleClick: src.Ticks(doubleClick),
	}
}
