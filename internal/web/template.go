package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/mqtt"
	"github.com/sweeney/button-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stamp": func(t time.Time) string {
		return t.UTC().Format(mqtt.EventTimestampFormat)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Button Sensor</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.pressed { color: green; font-weight: bold; }
.released { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Button Sensor</h1>

<h2>Buttons</h2>
<table>
<tr><th>Name</th><th>Pin</th><th>State</th><th>Press</th><th>Release</th><th>Long</th><th>Long rel.</th><th>Double</th></tr>
{{range .Buttons}}<tr><td>{{.Name}}</td><td>{{.Pin}} ({{.Polarity}})</td><td class="{{if eq .State "PRESSED"}}pressed{{else if eq .State "RELEASED"}}released{{else}}unknown{{end}}">{{.State}}</td><td>{{.Counts.Press}}</td><td>{{.Counts.Release}}</td><td>{{.Counts.LongPress}}</td><td>{{.Counts.LongRelease}}</td><td>{{.Counts.DoubleClick}}</td></tr>
{{end}}</table>

{{if .Recent}}<h2>Recent Events</h2>
<table>
<tr><th>Time</th><th>Button</th><th>Event</th></tr>
{{range .Recent}}<tr><td>{{stamp .Timestamp}}</td><td>{{.Button}}</td><td>{{.Type}}</td></tr>
{{end}}</table>
{{end}}
<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Instance</th><td>{{.Instance}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Tick}} ({{.Config.TickUs}}us)</td></tr>
<tr><th>Update</th><td>{{.Config.UpdateMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a>{{if .HasHistory}} | <a href="/events.json">Events</a>{{end}}</p>
</body>
</html>
`

type buttonRow struct {
	Name     string
	Pin      int
	Polarity string
	State    string
	Counts   logic.EventCounts
}

func renderHTML(w io.Writer, snap status.Snapshot, recent []logic.Event, hasHistory bool) error {
	rows := make([]buttonRow, 0, len(snap.Config.Buttons))
	for _, b := range snap.Config.Buttons {
		state := string(snap.State(b.Name))
		if state == "" {
			state = "UNKNOWN"
		}
		rows = append(rows, buttonRow{
			Name:     b.Name,
			Pin:      b.Pin,
			Polarity: b.Polarity,
			State:    state,
			Counts:   snap.Counts[b.Name],
		})
	}

	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime     time.Duration
		Buttons    []buttonRow
		Recent     []logic.Event
		HasHistory bool
	}{
		Snapshot:   snap,
		Uptime:     snap.Uptime(),
		Buttons:    rows,
		Recent:     recent,
		HasHistory: hasHistory,
	}
	return indexTmpl.Execute(w, data)
}
