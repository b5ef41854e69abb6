package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/water-sensor/internal/status"
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
	"levelClass": func(s string) string {
		switch s {
		case "LOW":
			return "low"
		case "MEDIUM":
			return "medium"
		case "HIGH":
			return "high"
		}
		return "unknown"
	},
	"linkClass": func(ok bool) string {
		if ok {
			return "connected"
		}
		return "disconnected"
	},
	"linkText": func(ok bool) string {
		if ok {
			return "up"
		}
		return "down"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Water Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.low { color: green; font-weight: bold; }
.medium { color: #c90; font-weight: bold; }
.high { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Water Sensor{{if .Live}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Level</h2>
<table>
<tr><th>Level</th><td id="level" class="{{levelClass (.Level.String)}}">{{.Level}}</td></tr>
<tr><th>Raw</th><td id="raw">{{.Raw}}</td></tr>
<tr><th>Last sample</th><td id="last-sample">{{if .LastSample.IsZero}}never{{else}}{{.LastSample.UTC.Format "2006-01-02T15:04:05Z"}}{{end}}</td></tr>
<tr><th>Device</th><td>{{.DeviceID}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Network</th><td class="{{linkClass .NetworkConnected}}">{{linkText .NetworkConnected}}</td></tr>
<tr><th>Store ({{.Config.StoreBackend}})</th><td class="{{linkClass .StoreReady}}">{{linkText .StoreReady}}</td></tr>
<tr><th>Clock</th><td class="{{linkClass .ClockSynced}}">{{if .ClockSynced}}synced{{else}}unsynced{{end}}</td></tr>
{{if .Config.Broker}}<tr><th>MQTT</th><td class="{{linkClass .MQTTConnected}}">{{linkText .MQTTConnected}} ({{.Config.Broker}})</td></tr>{{end}}
{{if .Network}}<tr><th>Interface</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Reports</h2>
<table>
<tr><th>Written</th><td id="reports-ok">{{.Reports.OK}}</td></tr>
<tr><th>Failed</th><td id="reports-failed">{{.Reports.Failed}}</td></tr>
<tr><th>Skipped</th><td id="reports-skipped">{{.Reports.Skipped}}</td></tr>
{{if .Reports.LastPath}}<tr><th>Last path</th><td>{{.Reports.LastPath}}</td></tr>{{end}}
{{if .Reports.LastError}}<tr><th>Last error</th><td class="disconnected">{{.Reports.LastError}}</td></tr>{{end}}
</table>

<h2>Level Counts</h2>
<table>
<tr><th>LOW</th><td id="count-low">{{.Counts.Low}}</td></tr>
<tr><th>MEDIUM</th><td id="count-medium">{{.Counts.Medium}}</td></tr>
<tr><th>HIGH</th><td id="count-high">{{.Counts.High}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Thresholds</th><td>MEDIUM &ge; {{.Config.ThresholdMedium}}, HIGH &ge; {{.Config.ThresholdHigh}}</td></tr>
<tr><th>Confirm</th><td>{{.Config.Confirm}} samples</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
{{if .Host}}<tr><th>Load</th><td>{{printf "%.1f" .Host.Load1}}</td></tr>
<tr><th>Memory</th><td>{{printf "%.0f" .Host.MemUsedMB}} / {{printf "%.0f" .Host.MemTotalMB}} MB</td></tr>
<tr><th>Disk</th><td>{{printf "%.1f" .Host.DiskUsedPct}}%</td></tr>{{end}}
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/health">health</a></p>
{{if .Live}}
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var levelEl = document.getElementById("level");
  var classes = { LOW: "low", MEDIUM: "medium", HIGH: "high" };

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function setText(id, v) {
    var el = document.getElementById(id);
    if (el && v !== undefined) { el.textContent = v; }
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        levelEl.textContent = s.level;
        levelEl.className = classes[s.level] || "unknown";
        setText("raw", s.raw);
        setText("last-sample", s.last_sample);
        setText("count-low", s.level_counts.low);
        setText("count-medium", s.level_counts.medium);
        setText("count-high", s.level_counts.high);
        setText("reports-ok", s.reports.ok);
        setText("reports-failed", s.reports.failed);
        setText("reports-skipped", s.reports.skipped);
      } catch (e) {}
    };
  }

  connect();
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, live bool) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Live   bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Live:     live,
	}
	return indexTmpl.Execute(w, data)
}
