package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vpsbot/internal/handler"
	"vpsbot/internal/middleware"
)

func registerRoutes(
	mux *http.ServeMux,
	webhook *handler.Webhook,
	adminAudit *handler.AdminAudit,
	limiter *middleware.ConcurrencyLimiter,
	rate *middleware.RateLimiter,
) {
	// Inbound webhook: rate limit first so floods never occupy a worker
	// slot, then the concurrency cap with its execution deadline.
	mux.HandleFunc("POST /webhook", rate.Limit(limiter.Limit(webhook.ServeHTTP)))

	// --- Admin surface ---
	mux.Handle("GET /api/v1/admin/audit/ws", adminAudit)

	// --- Observability ---
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
}
