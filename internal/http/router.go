package httpx

import (
	"net/http"

	"log/slog"

	"github.com/MAIDENMI/Tinder4Games/internal/analytics"
	"github.com/MAIDENMI/Tinder4Games/internal/app"
	"github.com/MAIDENMI/Tinder4Games/internal/ws"
	"github.com/MAIDENMI/Tinder4Games/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, stats *analytics.Aggregator) http.Handler {
	mw := NewMiddleware(cfg)
	api := &ReportAPI{Hub: hub, Stats: stats}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket endpoint
	mux.Handle("/ws", http.HandlerFunc(hub.ServeWS))

	// Reporting surface
	mux.Handle("GET /api/health", http.HandlerFunc(api.Health))
	mux.Handle("GET /api/analytics", http.HandlerFunc(api.Analytics))

	// CORS + rate limit applied globally
	return mw.Wrap(mux)
}
