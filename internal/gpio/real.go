//go:build linux

package gpio

import (
	"fmt"
	"log"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/button-sensor/internal/button"
)

// Lines reads button inputs from actual hardware using the Linux GPIO
// character device. Lines are requested lazily by ConfigurePin.
type Lines struct {
	mu     sync.Mutex
	chip   *gpiocdev.Chip
	lines  map[button.PinID]*gpiocdev.Line
	last   map[button.PinID]bool
	failed map[button.PinID]bool // read error already logged
}

// NewLines opens the named GPIO chip.
func NewLines(chipName string) (*Lines, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &Lines{
		chip:   chip,
		lines:  make(map[button.PinID]*gpiocdev.Line),
		last:   make(map[button.PinID]bool),
		failed: make(map[button.PinID]bool),
	}, nil
}

func biasOption(mode button.PinMode) gpiocdev.BiasOption {
	switch mode {
	case button.ModeInputPullUp:
		return gpiocdev.WithPullUp
	case button.ModeInputPullDown:
		return gpiocdev.WithPullDown
	default:
		return gpiocdev.WithBiasDisabled
	}
}

// ConfigurePin requests pin as an input with the bias for mode.
// Configuring an already requested pin reconfigures it in place.
func (l *Lines) ConfigurePin(pin button.PinID, mode button.PinMode) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if line, ok := l.lines[pin]; ok {
		if err := line.Reconfigure(gpiocdev.AsInput, biasOption(mode)); err != nil {
			return fmt.Errorf("reconfigure pin %d: %w", pin, err)
		}
		return nil
	}

	line, err := l.chip.RequestLine(int(pin), gpiocdev.AsInput, biasOption(mode))
	if err != nil {
		return fmt.Errorf("request pin %d: %w", pin, err)
	}
	l.lines[pin] = line

	// Seed the held value with the idle level the bias produces.
	l.last[pin] = mode == button.ModeInputPullUp
	return nil
}

// ReadPin returns the raw level of pin (true = HIGH).
// On a read error the last good level is returned, so a transient fault looks
// like a stable input to the debounce engine. Errors are logged once per
// failure run.
func (l *Lines) ReadPin(pin button.PinID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	line, ok := l.lines[pin]
	if !ok {
		return l.last[pin]
	}

	v, err := line.Value()
	if err != nil {
		if !l.failed[pin] {
			log.Printf("gpio: read pin %d: %v", pin, err)
			l.failed[pin] = true
		}
		return l.last[pin]
	}
	if l.failed[pin] {
		log.Printf("gpio: pin %d readable again", pin)
		l.failed[pin] = false
	}

	high := v != 0
	l.last[pin] = high
	return high
}

// Close releases GPIO resources.
// Reconfigures lines to input with pull-down (matching Pi boot defaults) before
// closing to ensure clean state for system shutdown/reboot.
func (l *Lines) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for pin, line := range l.lines {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
		delete(l.lines, pin)
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		l.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
