// Package admin mounts the load balancer's read-only observability
// surface: metrics, liveness, and a per-backend state snapshot. None of
// these handlers participate in request dispatch.
package admin

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kestrel-lb/kestrel/internal/dispatcher"
)

// Register mounts the admin handlers on mux.
func Register(mux *http.ServeMux, d *dispatcher.Dispatcher) {
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", healthzHandler)
	mux.HandleFunc("/backends", backendsHandler(d))
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// backendsHandler reports a JSON snapshot of every backend's live state.
// It is a diagnostic view only — it does not influence selection.
func backendsHandler(d *dispatcher.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "[")
		for i, b := range d.Backends() {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"url":%q,"weight":%d,"active_connections":%d,"is_healthy":%v,"latency_ms":%s}`,
				b.Address, b.Weight, b.ActiveConnections(), b.IsHealthy(), latencyField(b))
		}
		fmt.Fprint(w, "]")
	}
}

func latencyField(b *dispatcher.Backend) string {
	l := b.Latency()
	if l == dispatcher.UnmeasuredLatency {
		return `null`
	}
	return fmt.Sprintf("%d", l.Milliseconds())
}
