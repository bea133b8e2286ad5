package server

import (
	"fmt"
	"strings"
)

// placeholderDocument is served while no rendered document is current.
const placeholderDocument = `<!doctype html>
<html><head><meta charset="utf-8"><title>graphex</title></head>
<body><p>No graph rendered yet.</p></body></html>`

// bridgeScript connects the page to /surface/ws. Surface messages from the
// host are re-posted to the window; nodeSelected messages posted by the
// document go back to the host. A closed socket reloads the page.
const bridgeScript = `<script>(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/surface/ws?v=%d");
  ws.onmessage = function (e) {
    try { window.postMessage(JSON.parse(e.data), "*"); } catch (err) {}
  };
  ws.onclose = function () { setTimeout(function () { location.reload(); }, 250); };
  window.addEventListener("message", function (e) {
    var d = e.data;
    if (d && d.type === "nodeSelected" && ws.readyState === 1) { ws.send(JSON.stringify(d)); }
  });
})();</script>`

// injectBridge inserts the bridge for version before the closing body tag,
// or appends it when there is none.
func injectBridge(html string, version uint64) string {
	script := fmt.Sprintf(bridgeScript, version)
	i := strings.LastIndex(strings.ToLower(html), "</body>")
	if i < 0 {
		return html + script
	}
	return html[:i] + script + html[i:]
}
