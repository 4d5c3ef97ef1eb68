package gpio

import (
	"errors"
	"testing"

	"github.com/sweeney/button-sensor/internal/button"
	"github.com/sweeney/button-sensor/internal/tick"
)

var _ Pins = (*FakePins)(nil)

type stepClock struct{ now tick.Tick }

func (c *stepClock) Now() tick.Tick { return c.now }

func TestFakePinsScript(t *testing.T) {
	f := NewFakePins()
	f.Script(17, true, false, true)

	want := []bool{true, false, true, true, true}
	for i, w := range want {
		if got := f.ReadPin(17); got != w {
			t.Errorf("read %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestFakePinsIndependentPins(t *testing.T) {
	f := NewFakePins()
	f.Script(1, true, false)
	f.Script(2, false, true)

	if !f.ReadPin(1) {
		t.Error("pin 1 read 0: expected true")
	}
	if f.ReadPin(2) {
		t.Error("pin 2 read 0: expected false")
	}
	if f.ReadPin(1) {
		t.Error("pin 1 read 1: expected false")
	}
	if !f.ReadPin(2) {
		t.Error("pin 2 read 1: expected true")
	}
}

func TestFakePinsIdleLevel(t *testing.T) {
	f := NewFakePins()

	if err := f.ConfigurePin(5, button.ModeInputPullUp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.ReadPin(5) {
		t.Error("pull-up pin should idle HIGH")
	}

	if err := f.ConfigurePin(6, button.ModeInputPullDown); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ReadPin(6) {
		t.Error("pull-down pin should idle LOW")
	}
	if f.Modes[6] != button.ModeInputPullDown {
		t.Errorf("expected mode recorded, got %s", f.Modes[6])
	}
}

func TestFakePinsSet(t *testing.T) {
	f := NewFakePins()
	f.Script(3, true, true, true)
	f.ReadPin(3)

	f.Set(3, false)
	for i := 0; i < 3; i++ {
		if f.ReadPin(3) {
			t.Errorf("read %d: expected held LOW", i)
		}
	}
}

func TestFakePinsConfigureError(t *testing.T) {
	f := NewFakePins()
	f.ConfigureError = errors.New("simulated error")

	err := f.ConfigurePin(4, button.ModeInput)
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if !errors.Is(err, f.ConfigureError) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakePinsClose(t *testing.T) {
	f := NewFakePins()

	if f.Closed {
		t.Error("should not be closed initially")
	}

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakePinsReset(t *testing.T) {
	f := NewFakePins()
	f.Script(9, true, false)

	f.ReadPin(9)
	f.Reset()

	if !f.ReadPin(9) {
		t.Error("after reset: expected first sample again")
	}
}

// FakePins drives the debounce engine end to end.
func TestFakePinsDriveButton(t *testing.T) {
	f := NewFakePins()
	clock := &stepClock{}

	btn, err := button.New(f, clock, 17, button.ActiveLow, button.Timing{Press: 2, Release: 4, LongPress: 100, DoubleClick: 50})
	if err != nil {
		t.Fatalf("button.New: %v", err)
	}
	if f.Modes[17] != button.ModeInputPullUp {
		t.Errorf("expected pull-up, got %s", f.Modes[17])
	}

	f.Set(17, false) // pressed
	for i := 0; i < 5; i++ {
		clock.now++
		btn.Update()
	}
	if !btn.Pressed() {
		t.Error("expected press through FakePins")
	}
}
