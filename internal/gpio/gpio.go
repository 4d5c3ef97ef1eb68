// Package gpio provides GPIO input lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
//
// Both satisfy button.Pins: lines report raw electrical levels and the
// button engine applies polarity.
package gpio

import "github.com/sweeney/button-sensor/internal/button"

// DefaultChip is the GPIO chip used on Raspberry Pi boards.
const DefaultChip = "gpiochip0"

// Pins is the pin layer plus resource cleanup.
type Pins interface {
	button.Pins

	// Close releases GPIO resources.
	Close() error
}
