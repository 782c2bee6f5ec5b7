package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/reflow-oven/internal/status"
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
	"celsius": func(v float64) string {
		return fmt.Sprintf("%.2f °C", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Reflow Oven</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.fault { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
form { display: inline; }
</style>
</head>
<body>
<h1>Reflow Oven<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Process</h2>
<table>
<tr><th>Profile</th><td>{{.Config.Profile}}</td></tr>
<tr><th>Phase</th><td id="phase">{{.Oven.Phase}}</td></tr>
<tr><th>Progress</th><td id="progress">{{.Oven.Elapsed}} / {{.Oven.Duration}}</td></tr>
<tr><th>Target</th><td id="target">{{celsius .Oven.TargetC}}</td></tr>
<tr><th>Temperature</th>{{if .Oven.LastSample.Valid}}<td id="temp">{{celsius .Oven.LastSample.ValueC}}</td>{{else}}<td id="temp" class="fault">FAULT</td>{{end}}</tr>
<tr><th>Relay</th><td id="relay" class="{{if .Oven.RelayOn}}on{{else}}off{{end}}">{{if .Oven.RelayOn}}ON{{else}}OFF{{end}}</td></tr>
{{if .RunID}}<tr><th>Run</th><td>{{.RunID}}</td></tr>{{end}}
</table>

<p>
<form method="post" action="/command/start"><button type="submit">Start</button></form>
<form method="post" action="/command/abort"><button type="submit">Abort</button></form>
</p>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Runs started</th><td>{{.Counts.RunsStarted}}</td></tr>
<tr><th>Runs completed</th><td>{{.Counts.RunsCompleted}}</td></tr>
<tr><th>Runs aborted</th><td>{{.Counts.RunsAborted}}</td></tr>
<tr><th>Relay switches</th><td>{{.Counts.RelaySwitches}}</td></tr>
<tr><th>Sensor faults</th><td>{{.Counts.SensorFaults}}</td></tr>
<tr><th>Rejected commands</th><td>{{.Counts.RejectedCommands}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Hysteresis</th><td>{{.Config.HysteresisC}} °C</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
{{if .Config.Serial}}<tr><th>Serial</th><td>{{.Config.Serial}}</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }
  function text(id, v) { document.getElementById(id).textContent = v; }

  function connect() {
    var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() { setDot("err", "offline"); setTimeout(connect, 5000); };
    ws.onmessage = function(e) {
      try {
        var o = JSON.parse(e.data).status.oven;
        text("phase", o.phase);
        text("progress", o.elapsed_ticks + " / " + o.duration_ticks);
        text("target", o.target_c.toFixed(2) + " °C");
        var t = document.getElementById("temp");
        t.textContent = o.temp_c === null ? "FAULT" : o.temp_c.toFixed(2) + " °C";
        t.className = o.temp_c === null ? "fault" : "";
        var r = document.getElementById("relay");
        r.textContent = o.relay;
        r.className = o.relay === "ON" ? "on" : "off";
      } catch (err) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
