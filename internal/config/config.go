// Package config loads the button-sensor YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/button-sensor/internal/button"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/tick"
)

// Defaults for the daemon.
const (
	DefaultBroker    = "tcp://192.168.1.200:1883"
	DefaultHTTPAddr  = ":80"
	DefaultHeartbeat = 15 * time.Minute
	DefaultUpdate    = 5 * time.Millisecond
	DefaultBaud      = 115200
)

// Config is the daemon configuration.
type Config struct {
	Chip      string        `yaml:"chip"`
	Tick      time.Duration `yaml:"tick"`
	Update    time.Duration `yaml:"update"`
	Broker    string        `yaml:"broker"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	HTTP      string        `yaml:"http"`
	History   string        `yaml:"history"`
	Serial    Serial        `yaml:"serial"`
	Buttons   []Button      `yaml:"buttons"`
}

// Serial selects the optional UART event mirror. An empty Port disables it.
type Serial struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// Button configures one input.
type Button struct {
	Name            string        `yaml:"name"`
	Pin             int           `yaml:"pin"`
	Polarity        string        `yaml:"polarity"`
	Pull            string        `yaml:"pull"`
	PressDebounce   time.Duration `yaml:"press_debounce"`
	ReleaseDebounce time.Duration `yaml:"release_debounce"`
	LongPress       time.Duration `yaml:"long_press"`
	DoubleClick     time.Duration `yaml:"double_click"`
}

// Default returns the configuration used when no file is given: one
// active-low button on GPIO17 with the stock windows.
func Default() Config {
	return Config{
		Chip:      gpio.DefaultChip,
		Tick:      tick.DefaultPeriod,
		Update:    DefaultUpdate,
		Broker:    DefaultBroker,
		Heartbeat: DefaultHeartbeat,
		HTTP:      DefaultHTTPAddr,
		Serial:    Serial{Baud: DefaultBaud},
		Buttons:   []Button{defaultButton("button", 17)},
	}
}

func defaultButton(name string, pin int) Button {
	return Button{
		Name:            name,
		Pin:             pin,
		Polarity:        button.ActiveLow.String(),
		PressDebounce:   button.DefaultPress,
		ReleaseDebounce: button.DefaultRelease,
		LongPress:       button.DefaultLongPress,
		DoubleClick:     button.DefaultDoubleClick,
	}
}

// UnmarshalYAML decodes a button over the stock windows so that only the
// keys present in the document override them.
func (b *Button) UnmarshalYAML(unmarshal func(any) error) error {
	type plain Button
	p := plain(defaultButton("", 0))
	if err := unmarshal(&p); err != nil {
		return err
	}
	*b = Button(p)
	return nil
}

// Load reads and validates the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// fields are rejected. A buttons list replaces the default button; windows
// left unset take the stock values, while an explicit 0 is kept.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	for i := range cfg.Buttons {
		b := &cfg.Buttons[i]
		if b.Polarity == "" {
			b.Polarity = button.ActiveLow.String()
		}
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = DefaultBaud
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors a daemon cannot start with.
func (c Config) Validate() error {
	if c.Chip == "" {
		return errors.New("chip must not be empty")
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %v", c.Tick)
	}
	if c.Update < c.Tick {
		return fmt.Errorf("update (%v) must not be shorter than tick (%v)", c.Update, c.Tick)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat)
	}
	if c.Serial.Port != "" && c.Serial.Baud <= 0 {
		return fmt.Errorf("serial baud must be positive, got %d", c.Serial.Baud)
	}
	if len(c.Buttons) == 0 {
		return errors.New("at least one button is required")
	}

	names := make(map[string]bool, len(c.Buttons))
	pins := make(map[int]string, len(c.Buttons))
	for i, b := range c.Buttons {
		if b.Name == "" {
			return fmt.Errorf("button %d: name must not be empty", i)
		}
		if names[b.Name] {
			return fmt.Errorf("button %q: duplicate name", b.Name)
		}
		names[b.Name] = true
		if b.Pin < 0 {
			return fmt.Errorf("button %q: pin must not be negative, got %d", b.Name, b.Pin)
		}
		if other, ok := pins[b.Pin]; ok {
			return fmt.Errorf("button %q: pin %d already used by %q", b.Name, b.Pin, other)
		}
		pins[b.Pin] = b.Name
		if _, err := b.ParsePolarity(); err != nil {
			return fmt.Errorf("button %q: %w", b.Name, err)
		}
		if _, err := b.Mode(); err != nil {
			return fmt.Errorf("button %q: %w", b.Name, err)
		}
		for _, w := range []struct {
			field string
			d     time.Duration
		}{
			{"press_debounce", b.PressDebounce},
			{"release_debounce", b.ReleaseDebounce},
			{"long_press", b.LongPress},
			{"double_click", b.DoubleClick},
		} {
			if w.d < 0 {
				return fmt.Errorf("button %q: %s must not be negative, got %v", b.Name, w.field, w.d)
			}
			if w.d/c.Tick > time.Duration(tick.MaxSpan) {
				return fmt.Errorf("button %q: %s %v exceeds %d ticks of %v", b.Name, w.field, w.d, tick.MaxSpan, c.Tick)
			}
		}
	}
	return nil
}

// ParsePolarity returns the electrical convention named by Polarity.
func (b Button) ParsePolarity() (button.Polarity, error) {
	switch b.Polarity {
	case "", "active-low":
		return button.ActiveLow, nil
	case "active-high":
		return button.ActiveHigh, nil
	}
	return 0, fmt.Errorf("unknown polarity %q (want active-low or active-high)", b.Polarity)
}

// Mode returns the pin mode named by Pull, or the polarity default if Pull is empty.
func (b Button) Mode() (button.PinMode, error) {
	switch b.Pull {
	case "":
		p, err := b.ParsePolarity()
		if err != nil {
			return 0, err
		}
		return p.DefaultMode(), nil
	case "up":
		return button.ModeInputPullUp, nil
	case "down":
		return button.ModeInputPullDown, nil
	case "none":
		return button.ModeInput, nil
	}
	return 0, fmt.Errorf("unknown pull %q (want up, down or none)", b.Pull)
}

// Timing converts the button's windows into ticks of src.
func (b Button) Timing(src *tick.Source) button.Timing {
	return button.NewTiming(src, b.PressDebounce, b.ReleaseDebounce, b.LongPress, b.DoubleClick)
}
