// Package logic turns button flags into named gesture events.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the debounced state of a button.
type State string

const (
	StatePressed  State = "PRESSED"
	StateReleased State = "RELEASED"
)

// EventType represents a gesture.
type EventType string

const (
	EventPress       EventType = "PRESS"
	EventRelease     EventType = "RELEASE"
	EventLongPress   EventType = "LONG_PRESS"
	EventLongRelease EventType = "LONG_RELEASE"
	EventDoubleClick EventType = "DOUBLE_CLICK"
)

// Event represents a gesture to be published.
type Event struct {
	Timestamp time.Time
	Button    string
	Type      EventType
	State     State // debounced state when the event was read
}

// EventCounts tracks the number of each event type for one button since startup.
type EventCounts struct {
	Press       int
	Release     int
	LongPress   int
	LongRelease int
	DoubleClick int
}

// Total returns the sum of all counts.
func (c EventCounts) Total() int {
	return c.Press + c.Release + c.LongPress + c.LongRelease + c.DoubleClick
}

// Add increments the counter for t by n. Unknown types are ignored.
func (c *EventCounts) Add(t EventType, n int) {
	switch t {
	case EventPress:
		c.Press += n
	case EventRelease:
		c.Release += n
	case EventLongPress:
		c.LongPress += n
	case EventLongRelease:
		c.LongRelease += n
	case EventDoubleClick:
		c.DoubleClick += n
	}
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    map[string]EventCounts
}
