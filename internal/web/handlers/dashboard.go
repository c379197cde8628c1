package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/internal/web/middleware"
)

// HandleIndex はダッシュボードのHTMLページを返す
func HandleIndex() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(dashboardHTML))
	})
}

// NewRouter はダッシュボードのルーティングを設定する
func NewRouter(api *APIHandler, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle("GET /api/stats", middleware.JSON(api.HandleStats()))
	mux.Handle("GET /api/sessions", middleware.JSON(api.HandleSessions()))
	mux.Handle("GET /api/usage", middleware.JSON(api.HandleUsage()))
	mux.Handle("GET /api/audit", middleware.JSON(api.HandleAudit()))
	mux.Handle("GET /api/health", middleware.JSON(api.HandleHealth()))
	mux.Handle("GET /ws", api.HandleWebSocket())
	mux.Handle("GET /", HandleIndex())

	return middleware.Chain(
		mux,
		middleware.Recover(logger),
		middleware.Logger(logger),
		middleware.Security,
	)
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>cchook dashboard</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; margin: 2rem; color: #101F38; background: #f4f5f6; }
  h1 { font-size: 1.4rem; }
  .cards { display: flex; gap: 1rem; margin-bottom: 1.5rem; }
  .card { background: #fff; border-radius: 8px; padding: 1rem 1.5rem; min-width: 8rem; }
  .card .value { font-size: 1.6rem; font-weight: bold; }
  #feed { background: #fff; border-radius: 8px; padding: 1rem; font-family: monospace; font-size: .85rem; max-height: 60vh; overflow-y: auto; }
  .usage { color: #2196F3; } .notification { color: #8BC34A; } .session { color: #e57373; } .stats { color: #999; }
</style>
</head>
<body>
<h1>📊 cchook dashboard</h1>
<div class="cards">
  <div class="card"><div>Total tools</div><div class="value" id="total">-</div></div>
  <div class="card"><div>Successful</div><div class="value" id="success">-</div></div>
  <div class="card"><div>Last updated</div><div class="value" id="updated" style="font-size:1rem">-</div></div>
</div>
<div id="feed"></div>
<script>
  function showStats(s) {
    document.getElementById("total").textContent = s.total_tools;
    document.getElementById("success").textContent = s.successful_tools;
    document.getElementById("updated").textContent = s.last_updated || "-";
  }
  function append(ev) {
    const line = document.createElement("div");
    line.className = ev.type;
    line.textContent = ev.timestamp + " [" + ev.type + "] " + JSON.stringify(ev.data);
    const feed = document.getElementById("feed");
    feed.prepend(line);
  }
  fetch("/api/stats").then(r => r.json()).then(showStats);
  const proto = location.protocol === "https:" ? "wss://" : "ws://";
  const ws = new WebSocket(proto + location.host + "/ws");
  ws.onmessage = (msg) => {
    const ev = JSON.parse(msg.data);
    if (ev.type === "initial_stats" || ev.type === "stats") { showStats(ev.data); }
    if (ev.type !== "initial_stats") { append(ev); }
  };
</script>
</body>
</html>
`
