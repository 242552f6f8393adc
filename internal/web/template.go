package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/triggerpi/internal/status"
	"github.com/sweeney/triggerpi/internal/trigger"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"duration": func(d time.Duration) string {
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
	"onoff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"inc": func(i int) int { return i + 1 },
	"stateClass": func(s trigger.State) string {
		switch s {
		case trigger.StateOn:
			return "on"
		case trigger.StateTurningOn, trigger.StateArmed:
			return "pending"
		case trigger.StateOff:
			return "off"
		}
		return "unknown"
	},
	"percent": func(level float64) string {
		return fmt.Sprintf("%.0f%%", level*100)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Trigger Monitor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.pending { color: orange; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Trigger Monitor</h1>

<h2>State</h2>
<table>
<tr><th>State</th><td class="{{stateClass .State}}">{{.StateOrUnknown}}</td></tr>
<tr><th>In state for</th><td>{{duration .Dwell}}</td></tr>
{{if .LastReason}}<tr><th>Last transition</th><td>{{.LastReason}}</td></tr>{{end}}
</table>

<h2>Channels</h2>
<table>
<tr><th>Channel</th><th>Input</th><th>Relay</th></tr>
{{$relays := .Outputs.Relays}}{{range $i, $in := .Inputs}}<tr><td>{{inc $i}}</td><td class="{{if $in}}on{{else}}off{{end}}">{{onoff $in}}</td><td>{{if lt $i (len $relays)}}{{onoff (index $relays $i)}}{{end}}</td></tr>
{{end}}</table>

<h2>Indicators</h2>
<table>
<tr><th>Power</th><td>{{percent .Outputs.Power}}</td></tr>
<tr><th>Comms</th><td>{{percent .Outputs.Comms}}</td></tr>
<tr><th>Warn</th><td>{{percent .Outputs.Warn}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Transitions</h2>
<table>
<tr><th>To TURNING_ON</th><td>{{.Counts.TurningOn}}</td></tr>
<tr><th>To ARMED</th><td>{{.Counts.Armed}} ({{.Counts.PowerOnTimeouts}} by timeout)</td></tr>
<tr><th>To ON</th><td>{{.Counts.On}}</td></tr>
<tr><th>To OFF</th><td>{{.Counts.Off}} ({{.Counts.ArmedTimeouts}} by timeout)</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{duration .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Power-on hold</th><td>{{.Config.PowerOnHoldMs}}ms</td></tr>
<tr><th>Armed hold</th><td>{{.Config.ArmedHoldMs}}ms</td></tr>
<tr><th>Relay mode</th><td>{{.Config.RelayMode}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	if err := indexTmpl.Execute(w, snap); err != nil {
		log.Warnf("web: render index: %v", err)
	}
}
