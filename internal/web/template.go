package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/signal-controller/internal/status"
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
	"secs": func(f float64) string {
		return fmt.Sprintf("%.1fs", f)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="1">
<title>Signal Controller</title>
<style>
body { font-family: monospace; max-width: 700px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.RED { color: #c00; font-weight: bold; }
.YELLOW { color: #b80; font-weight: bold; }
.GREEN { color: green; font-weight: bold; }
.FLASHING_RED { color: #c00; font-weight: bold; text-decoration: blink; }
.emergency { color: #c00; }
.connected { color: green; }
.disconnected { color: red; }
.paused { color: orange; font-weight: bold; }
</style>
</head>
<body>
<h1>Signal Controller</h1>

<table>
<tr><th>Phase</th><td>{{.Phase}}{{if .ActiveLane}} ({{.ActiveLane}}){{end}}
{{- if .Paused}} <span class="paused">PAUSED</span>{{end}}</td></tr>
<tr><th>Last decision</th><td>{{if .LastReason}}{{.LastReason}}{{else}}—{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>MQTT</th><td>{{if .MQTTConnected}}<span class="connected">connected</span>{{else}}<span class="disconnected">disconnected</span>{{end}} ({{.Config.Broker}})</td></tr>
</table>

<table>
<tr><th>Lane</th><th>Signal</th><th>Vehicles</th><th>Wait</th><th>Score</th></tr>
{{range .Lanes}}
<tr>
<td>{{.Lane}}{{if .Emergency}} <span class="emergency">&#9888; EMERGENCY</span>{{end}}</td>
<td class="{{.Color}}">{{.Color}}</td>
<td>{{.Vehicles}}/{{.Capacity}}</td>
<td>{{secs .WaitSeconds}}</td>
<td>{{printf "%.1f" .Score}}</td>
</tr>
{{end}}
</table>

<table>
<tr><th>Decisions (density)</th><td>{{.Counts.Density}}</td></tr>
<tr><th>Decisions (fairness)</th><td>{{.Counts.Fairness}}</td></tr>
<tr><th>Decisions (emergency)</th><td>{{.Counts.Emergency}}</td></tr>
<tr><th>Input errors</th><td>{{.Counts.InputErrors}}</td></tr>
<tr><th>Actuator errors</th><td>{{.Counts.ActuatorErrors}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	if err := indexTmpl.Execute(w, snap); err != nil {
		log.Printf("web: render template: %v", err)
	}
}
