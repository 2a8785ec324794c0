package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes the Prometheus scrape endpoint. The CLI mounts it
// on a local port so a sidecar agent can scrape SDK counters.
func MetricsHandler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

// ServeMetrics starts a blocking scrape listener on addr.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())
	return http.ListenAndServe(addr, mux)
}
