package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Instance      string       `json:"instance"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Tick          uint32       `json:"tick"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Buttons       []ButtonJSON `json:"buttons"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ButtonJSON is the JSON representation of one button.
type ButtonJSON struct {
	Name     string     `json:"name"`
	Pin      int        `json:"pin"`
	Polarity string     `json:"polarity"`
	State    string     `json:"state"`
	Counts   CountsJSON `json:"event_counts"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Press       int `json:"press"`
	Release     int `json:"release"`
	LongPress   int `json:"long_press"`
	LongRelease int `json:"long_release"`
	DoubleClick int `json:"double_click"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickUs      int64              `json:"tick_us"`
	UpdateMs    int64              `json:"update_ms"`
	HeartbeatMs int64              `json:"heartbeat_ms"`
	Broker      string             `json:"broker"`
	HTTPAddr    string             `json:"http_addr"`
	Buttons     []ButtonConfigJSON `json:"buttons"`
}

// ButtonConfigJSON is the JSON representation of one button's windows.
type ButtonConfigJSON struct {
	Name          string `json:"name"`
	PressMs       int64  `json:"press_ms"`
	ReleaseMs     int64  `json:"release_ms"`
	LongPressMs   int64  `json:"long_press_ms"`
	DoubleClickMs int64  `json:"double_click_ms"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Instance:      snap.Instance,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Tick:          snap.Tick,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Buttons:       make([]ButtonJSON, 0, len(snap.Config.Buttons)),
		Config: ConfigJSON{
			TickUs:      snap.Config.TickUs,
			UpdateMs:    snap.Config.UpdateMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Buttons:     make([]ButtonConfigJSON, 0, len(snap.Config.Buttons)),
		},
	}

	for _, b := range snap.Config.Buttons {
		state := string(snap.State(b.Name))
		if state == "" {
			state = "UNKNOWN"
		}
		c := snap.Counts[b.Name]
		inner.Buttons = append(inner.Buttons, ButtonJSON{
			Name:     b.Name,
			Pin:      b.Pin,
			Polarity: b.Polarity,
			State:    state,
			Counts: CountsJSON{
				Press:       c.Press,
				Release:     c.Release,
				LongPress:   c.LongPress,
				LongRelease: c.LongRelease,
				DoubleClick: c.DoubleClick,
			},
		})
		inner.Config.Buttons = append(inner.Config.Buttons, ButtonConfigJSON{
			Name:          b.Name,
			PressMs:       b.PressMs,
			ReleaseMs:     b.ReleaseMs,
			LongPressMs:   b.LongPressMs,
			DoubleClickMs: b.DoubleClickMs,
		})
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
