package web

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"time"

	"github.com/sweeney/garage-door/internal/status"
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
	"reading": func(v float64) string {
		if math.IsNaN(v) {
			return "NaN"
		}
		return fmt.Sprintf("%.1f", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Garage Door</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.open { color: orange; font-weight: bold; }
.closed { color: green; }
.unknown { color: #888; }
.active { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Garage Door{{if .Config.DeviceID}} ({{.Config.DeviceID}}){{end}}</h1>

<h2>State</h2>
<table>
<tr><th>Door</th><td id="door-state" class="{{if eq .Door "OPEN"}}open{{else if eq .Door "CLOSED"}}closed{{else}}unknown{{end}}">{{.Door}}</td></tr>
<tr><th>Relay</th><td id="relay-state" class="{{if eq .Relay "ACTIVE"}}active{{end}}">{{.Relay}}</td></tr>
<tr><th>Ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Environment</h2>
<table>
{{if .Reading}}<tr><th>Temperature</th><td id="temperature">{{reading .Reading.TemperatureF}} °F</td></tr>
<tr><th>Humidity</th><td id="humidity">{{reading .Reading.Humidity}} %</td></tr>
<tr><th>Sampled</th><td>{{.ReadingAt.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
{{else}}<tr><th>Temperature</th><td>no reading yet</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Door opened</th><td>{{.Counts.DoorOpened}}</td></tr>
<tr><th>Door closed</th><td>{{.Counts.DoorClosed}}</td></tr>
<tr><th>Relay pulses</th><td>{{.Counts.RelayPulses}}</td></tr>
<tr><th>Rejected commands</th><td>{{.Counts.RejectedCommands}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Pulse</th><td>{{.Config.PulseDurationMs}}ms</td></tr>
<tr><th>Stats interval</th><td>{{.Config.StatsIntervalS}}s</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, tmpl *template.Template, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Door   string
		Uptime time.Duration
	}{
		Snapshot: snap,
		Door:     status.DoorString(snap),
		Uptime:   snap.Uptime(),
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render status page: %w", err)
	}
	return nil
}
