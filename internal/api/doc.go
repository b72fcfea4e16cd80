// Package api provides the operations HTTP server for Coldwatch Core.
//
// It is not a business API. Three read-only endpoints are served:
//
//	GET /metrics   Prometheus exposition of the internal/infrastructure/metrics collectors
//	GET /health    runs every registered dependency check; 503 when any fails
//	GET /status    uptime, runtime, device count, active alerts, DB pool
//
// The server only runs with metrics.enabled=true and follows the same
// lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
