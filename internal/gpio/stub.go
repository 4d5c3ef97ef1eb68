//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/button-sensor/internal/button"
)

// Lines is not available on non-Linux platforms.
type Lines struct{}

// NewLines returns an error on non-Linux platforms.
func NewLines(chipName string) (*Lines, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ConfigurePin is not implemented on non-Linux platforms.
func (l *Lines) ConfigurePin(pin button.PinID, mode button.PinMode) error {
	return errors.New("gpio: not supported")
}

// ReadPin is not implemented on non-Linux platforms.
func (l *Lines) ReadPin(pin button.PinID) bool {
	return false
}

// Close is not implemented on non-Linux platforms.
func (l *Lines) Close() error {
	return nil
}
