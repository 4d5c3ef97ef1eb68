// Package status provides a thread-safe status tracker for the button-sensor daemon.
// It is read by HTTP handlers and by lifecycle events published over MQTT.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
)

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// ButtonConfig describes one configured button for display.
type ButtonConfig struct {
	Name          string
	Pin           int
	Polarity      string
	PressMs       int64
	ReleaseMs     int64
	LongPressMs   int64
	DoubleClickMs int64
}

// Config contains daemon configuration for display.
type Config struct {
	TickUs      int64
	UpdateMs    int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Buttons     []ButtonConfig
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type; the maps are replaced, never mutated, by the tracker.
type Snapshot struct {
	Instance      string
	States        map[string]logic.State
	Counts        map[string]logic.EventCounts
	Tick          uint32
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// State returns the state of the named button, or "" if it has not been polled.
func (s Snapshot) State(name string) logic.State {
	return s.States[name]
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time, instance id and config.
func NewTracker(startTime time.Time, instance string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Instance:  instance,
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update sets button states, event counts and the current tick.
// Called from the run loop on every poll. The maps must not be modified
// by the caller afterwards.
func (t *Tracker) Update(states map[string]logic.State, counts map[string]logic.EventCounts, tick uint32) {
	t.mu.Lock()
	t.snap.States = states
	t.snap.Counts = counts
	t.snap.Tick = tick
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
