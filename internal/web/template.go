package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/relay-node/internal/status"
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
	"onoff": func(high bool) string { return status.OnOff(high) },
	"hex":   func(b []byte) string { return fmt.Sprintf("% X", b) },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Relay Node</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.rejected { color: red; }
</style>
</head>
<body>
<h1>Relay Node</h1>

<h2>Relays (port {{.StatusPort}})</h2>
<table>
{{range .Pins}}<tr><th>P{{$.StatusPort}}{{.Pin}}</th><td class="{{if .Level}}on{{else}}off{{end}}">{{onoff (eq .Level true)}}</td></tr>
{{end}}<tr><th>Status buffer</th><td>{{hex .Buf}}</td></tr>
</table>

<h2>Commands</h2>
<table>
<tr><th>Accepted</th><td>{{.Counts.Accepted}}</td></tr>
<tr><th>Rejected</th><td>{{.Counts.Rejected}}</td></tr>
<tr><th>Write errors</th><td>{{.Counts.WriteErrors}}</td></tr>
{{if .Last}}<tr><th>Last</th><td class="{{if not .Last.Accepted}}rejected{{end}}">{{.Last.Command}} via {{.Last.Source}}{{if .Last.Error}} ({{.Last.Error}}){{end}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Config.LoRaDevice}}<tr><th>LoRa</th><td>{{.Config.LoRaDevice}}</td></tr>{{end}}
{{if .Config.ModbusEndpoint}}<tr><th>Modbus mirror</th><td>{{.Config.ModbusEndpoint}}</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO</th><td>{{.Config.GPIOBackend}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/status.bin">binary</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Template funcs need a Duration and a byte slice, not methods/arrays.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Buf    []byte
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Buf:      snap.Buffer[:],
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
