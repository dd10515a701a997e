package config

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/asyncload/pkg/metrics"
)

// MetricsResult holds what InitializeMetrics created.
type MetricsResult struct {
	// Registry is nil when metrics are disabled.
	Registry *prometheus.Registry

	// Server serves /metrics on the dedicated metrics port. It is nil when
	// metrics are disabled. The caller starts and stops it.
	Server *http.Server
}

// InitializeMetrics initializes the Prometheus registry when metrics are
// enabled and builds the metrics HTTP server. It must run before stores and
// the loader are created so their constructors pick up the registry.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	reg := metrics.InitRegistry()

	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())

	return &MetricsResult{
		Registry: reg,
		Server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}
