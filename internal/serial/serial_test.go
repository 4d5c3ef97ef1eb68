package serial

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
)

type bufPort struct {
	bytes.Buffer
	closed   bool
	writeErr error
}

func (b *bufPort) Write(p []byte) (int, error) {
	if b.writeErr != nil {
		return 0, b.writeErr
	}
	return b.Buffer.Write(p)
}

func (b *bufPort) Close() error {
	b.closed = true
	return nil
}

var t0 = time.Date(2026, 2, 2, 22, 18, 12, 345_000_000, time.UTC)

func TestFormatLine(t *testing.T) {
	got := FormatLine(logic.Event{Timestamp: t0, Button: "doorbell", Type: logic.EventPress, State: logic.StatePressed})
	want := "2026-02-02T22:18:12.345Z doorbell PRESS PRESSED\r\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPublishWritesLines(t *testing.T) {
	port := &bufPort{}
	s := NewSink(port)

	s.Publish(logic.Event{Timestamp: t0, Button: "doorbell", Type: logic.EventPress, State: logic.StatePressed})
	s.Publish(logic.Event{Timestamp: t0.Add(time.Second), Button: "doorbell", Type: logic.EventLongPress, State: logic.StatePressed})

	want := "2026-02-02T22:18:12.345Z doorbell PRESS PRESSED\r\n" +
		"2026-02-02T22:18:13.345Z doorbell LONG_PRESS PRESSED\r\n"
	if got := port.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPublishWriteError(t *testing.T) {
	port := &bufPort{writeErr: errors.New("unplugged")}
	s := NewSink(port)

	err := s.Publish(logic.Event{Timestamp: t0, Button: "doorbell", Type: logic.EventRelease, State: logic.StateReleased})
	if err == nil {
		t.Fatal("expected write error")
	}
	if !errors.Is(err, port.writeErr) {
		t.Errorf("expected wrapped write error, got %v", err)
	}
}

func TestCloseThenPublish(t *testing.T) {
	port := &bufPort{}
	s := NewSink(port)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !port.closed {
		t.Error("port not closed")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := s.Publish(logic.Event{Timestamp: t0, Button: "doorbell"}); err == nil {
		t.Error("expected error publishing after Close")
	}
}

func TestOpenMissingPort(t *testing.T) {
	if _, err := Open("/dev/does-not-exist-button-sensor", 115200); err == nil {
		t.Error("expected error opening missing port")
	}
}
