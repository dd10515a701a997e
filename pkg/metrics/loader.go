package metrics

import "github.com/marmos91/asyncload/pkg/loader"

// NewLoaderMetrics creates a Prometheus-backed loader.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called) or the
// Prometheus implementation was not linked in. A nil value passed to
// loader.WithMetrics disables collection at zero cost.
//
// Example usage:
//
//	metrics.InitRegistry()
//	l := loader.New(cfg, linkers, objs, loader.WithMetrics(metrics.NewLoaderMetrics()))
func NewLoaderMetrics() loader.Metrics {
	if !IsEnabled() || newPrometheusLoaderMetrics == nil {
		return nil
	}
	return newPrometheusLoaderMetrics()
}

// newPrometheusLoaderMetrics is implemented in pkg/metrics/prometheus/loader.go.
var newPrometheusLoaderMetrics func() loader.Metrics

// RegisterLoaderMetricsConstructor registers the Prometheus loader metrics
// constructor. Called by pkg/metrics/prometheus during initialization.
func RegisterLoaderMetricsConstructor(constructor func() loader.Metrics) {
	newPrometheusLoaderMetrics = constructor
}
