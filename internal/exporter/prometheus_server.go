package exporter

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// createHTTPServer creates an HTTP server for Prometheus metrics.
func createHTTPServer(
	addr string,
	path string,
	promRegistry *prometheus.Registry,
	internalMetricsEnabled bool,
) *http.Server {
	mux := http.NewServeMux()

	baseHandler := promhttp.HandlerFor(
		promRegistry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		},
	)

	var handler http.Handler
	if internalMetricsEnabled {
		handler = promhttp.InstrumentMetricHandler(promRegistry, baseHandler)
	} else {
		handler = baseHandler
	}

	handler = loggingMiddleware(handler)

	mux.Handle("GET "+path, handler)

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}

// loggingMiddleware logs scrape requests when debug logging is enabled
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("prometheus scrape", "remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
