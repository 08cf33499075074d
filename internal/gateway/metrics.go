package gateway

import (
	"net/http"
	"sync/atomic"
)

// Metrics holds per-route request counters for the gateway.
type Metrics struct {
	totalRequests      int64
	staticRequests     int64
	apiRequests        int64
	supervisorRequests int64
	websocketUpgrades  int64
	authFailures       int64
	proxyErrors        int64
}

// Snapshot returns the current counters
func (m *Metrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"total_requests":      atomic.LoadInt64(&m.totalRequests),
		"static_requests":     atomic.LoadInt64(&m.staticRequests),
		"api_requests":        atomic.LoadInt64(&m.apiRequests),
		"supervisor_requests": atomic.LoadInt64(&m.supervisorRequests),
		"websocket_upgrades":  atomic.LoadInt64(&m.websocketUpgrades),
		"auth_failures":       atomic.LoadInt64(&m.authFailures),
		"proxy_errors":        atomic.LoadInt64(&m.proxyErrors),
	}
}

// count wraps a handler with a per-route counter plus the total.
func (m *Metrics) count(counter *int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&m.totalRequests, 1)
		atomic.AddInt64(counter, 1)
		next.ServeHTTP(w, r)
	})
}
