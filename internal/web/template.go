package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/status"
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
		return fmt.Sprintf("%.1f", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Greenhouse Controller</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.active { color: #c60; font-weight: bold; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Greenhouse Controller</h1>

<h2>Latest Reading</h2>
{{with .LastReading}}<table>
<tr><th>Time</th><td>{{.Timestamp.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Temperature</th><td>{{reading .TempF}} &deg;F</td></tr>
<tr><th>Humidity</th><td>{{reading .Humidity}} %</td></tr>
<tr><th>Soil Moisture A</th><td>{{reading .MoistureA}} %</td></tr>
<tr><th>Soil Moisture B</th><td>{{reading .MoistureB}} %</td></tr>
<tr><th>Fan Signal</th><td>{{reading .FanSignal}}</td></tr>
</table>{{else}}<p>No readings yet.</p>{{end}}

<h2>Triggers</h2>
{{if .Triggers}}<table>
{{range .Triggers}}<tr><th title="{{.Description}}">{{.Name}}</th><td class="{{if .Active}}active{{else}}idle{{end}}">{{if .Active}}ACTIVE{{else}}idle{{end}}</td><td>{{.Details}}</td></tr>
{{end}}</table>{{else}}<p>Not evaluated yet.</p>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>Controller</th><td class="{{if .TransportConnected}}connected{{else}}disconnected{{end}}">{{if .TransportConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Serial Port</th><td>{{.Config.SerialPort}} @ {{.Config.BaudRate}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Readings</th><td>{{.Counts.Readings}}</td></tr>
<tr><th>Parse Failures</th><td>{{.Counts.ParseFailures}}</td></tr>
<tr><th>Trigger Edges</th><td>{{.Counts.Edges}}</td></tr>
<tr><th>Commands</th><td>{{.Counts.Commands}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Store</th><td>{{.Config.Store}}{{if .Config.Cache}} + {{.Config.Cache}}{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/api/triggers">Evaluate triggers</a> | <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
