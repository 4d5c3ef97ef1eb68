package logic

import (
	"time"

	"github.com/sweeney/button-sensor/internal/button"
)

// Source is a debounced button that can be read and acknowledged.
type Source interface {
	Read(mask button.Flags) button.Flags
}

type channel struct {
	name   string
	src    Source
	state  State
	counts EventCounts
}

// Detector polls a set of named buttons and reports their gestures.
type Detector struct {
	channels      []*channel
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewDetector creates a detector with no buttons.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(startTime time.Time) *Detector {
	return &Detector{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Add registers a button under name. Buttons are polled in registration order.
func (d *Detector) Add(name string, src Source) {
	d.channels = append(d.channels, &channel{
		name:  name,
		src:   src,
		state: StateReleased,
	})
}

// Names returns the registered button names in poll order.
func (d *Detector) Names() []string {
	names := make([]string, len(d.channels))
	for i, ch := range d.channels {
		names[i] = ch.name
	}
	return names
}

// Poll acknowledges every pending flag and returns the resulting events.
// Each button is read once with a combined mask, so a press and a double
// click raised by the same transition are both reported. For one button the
// order is PRESS/RELEASE, then DOUBLE_CLICK, then LONG_PRESS/LONG_RELEASE.
func (d *Detector) Poll(now time.Time) []Event {
	var events []Event

	for _, ch := range d.channels {
		f := ch.src.Read(button.State | button.Events)

		state := StateReleased
		if f&button.State != 0 {
			state = StatePressed
		}
		ch.state = state

		emit := func(t EventType) {
			events = append(events, Event{
				Timestamp: now,
				Button:    ch.name,
				Type:      t,
				State:     state,
			})
			ch.counts.Add(t, 1)
		}

		if f&button.Changed != 0 {
			if state == StatePressed {
				emit(EventPress)
			} else {
				emit(EventRelease)
			}
		}
		if f&button.DoubleClick != 0 {
			emit(EventDoubleClick)
		}
		if f&button.LongEvent != 0 {
			if state == StatePressed {
				emit(EventLongPress)
			} else {
				emit(EventLongRelease)
			}
		}
	}

	return events
}

// CurrentState returns the debounced state of every button as of the last Poll.
func (d *Detector) CurrentState() map[string]State {
	states := make(map[string]State, len(d.channels))
	for _, ch := range d.channels {
		states[ch.name] = ch.state
	}
	return states
}

// EventCountsSnapshot returns a copy of the per-button event counts.
func (d *Detector) EventCountsSnapshot() map[string]EventCounts {
	counts := make(map[string]EventCounts, len(d.channels))
	for _, ch := range d.channels {
		counts[ch.name] = ch.counts
	}
	return counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.EventCountsSnapshot(),
	}
}
