// Package metrics exposes Prometheus metrics for the collector over a
// dedicated HTTP listener. Counters and gauges are registered through
// github.com/VictoriaMetrics/metrics by the packages that increment them;
// this package only hosts the scrape endpoint.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	vmetrics "github.com/VictoriaMetrics/metrics"
)

// MetricsServer serves the /metrics scrape endpoint.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the named service listening on addr.
// The name is exported as a "<name>_up" gauge so scrapes can confirm which
// service answered. An empty addr is allowed; the caller is expected to
// skip ListenAndServe in that case.
func New(name, addr string) (*MetricsServer, error) {
	if name == "" {
		return nil, errors.New("metrics: empty service name")
	}

	vmetrics.GetOrCreateGauge(fmt.Sprintf("%s_up", metricName(name)), func() float64 { return 1 })

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		vmetrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// ListenAndServe blocks serving the scrape endpoint until Shutdown.
func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// metricName maps a service name onto the Prometheus name character set.
func metricName(name string) string {
	return strings.NewReplacer("-", "_", ".", "_", "/", "_").Replace(name)
}
