package gpio

import (
	"fmt"
	"sync"

	"github.com/sweeney/button-sensor/internal/button"
)

// FakePins is a test double that returns scripted raw levels.
// Safe for concurrent use.
type FakePins struct {
	mu sync.Mutex

	// samples holds the scripted levels per pin. Each ReadPin consumes the
	// next level; the last one repeats once exhausted.
	samples map[button.PinID][]bool
	index   map[button.PinID]int

	// Modes records the last mode configured per pin.
	Modes map[button.PinID]button.PinMode

	// ConfigureError, if set, will be returned by ConfigurePin.
	ConfigureError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakePins creates FakePins with no scripted pins.
func NewFakePins() *FakePins {
	return &FakePins{
		samples: make(map[button.PinID][]bool),
		index:   make(map[button.PinID]int),
		Modes:   make(map[button.PinID]button.PinMode),
	}
}

// Script replaces the scripted levels for pin and rewinds it.
func (f *FakePins) Script(pin button.PinID, levels ...bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples[pin] = append([]bool(nil), levels...)
	f.index[pin] = 0
}

// Set holds pin at a single level.
func (f *FakePins) Set(pin button.PinID, high bool) {
	f.Script(pin, high)
}

// ConfigurePin records the mode.
func (f *FakePins) ConfigurePin(pin button.PinID, mode button.PinMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfigureError != nil {
		return fmt.Errorf("configure pin %d: %w", pin, f.ConfigureError)
	}
	f.Modes[pin] = mode
	return nil
}

// ReadPin returns the next scripted level for pin.
// Unscripted pins read as the idle level of their configured mode.
func (f *FakePins) ReadPin(pin button.PinID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	levels := f.samples[pin]
	if len(levels) == 0 {
		return f.Modes[pin] == button.ModeInputPullUp
	}

	i := f.index[pin]
	if i < len(levels)-1 {
		f.index[pin] = i + 1
	}
	return levels[i]
}

// Close marks the pins as closed.
func (f *FakePins) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Reset rewinds every pin to the beginning of its script.
func (f *FakePins) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pin := range f.index {
		f.index[pin] = 0
	}
	f.Closed = false
}
