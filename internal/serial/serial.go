// Package serial mirrors button events to a UART as plain text lines.
package serial

import (
	"fmt"
	"io"
	"sync"

	tarm "github.com/tarm/serial"

	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/mqtt"
)

// Sink writes one line per event:
//
//	2026-02-02T22:18:12.345Z doorbell PRESS PRESSED\r\n
type Sink struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// Open opens the serial device at port with the given baud rate.
func Open(port string, baud int) (*Sink, error) {
	p, err := tarm.OpenPort(&tarm.Config{Name: port, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	return NewSink(p), nil
}

// NewSink wraps an already open writer.
func NewSink(w io.WriteCloser) *Sink {
	return &Sink{w: w}
}

// FormatLine returns the line written for e, including the CRLF terminator.
func FormatLine(e logic.Event) string {
	return fmt.Sprintf("%s %s %s %s\r\n",
		e.Timestamp.UTC().Format(mqtt.EventTimestampFormat), e.Button, e.Type, e.State)
}

// Publish writes e to the port.
func (s *Sink) Publish(e logic.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return fmt.Errorf("serial sink closed")
	}
	if _, err := io.WriteString(s.w, FormatLine(e)); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

// Close closes the underlying port. Further Publish calls fail.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}
