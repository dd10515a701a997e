package prometheus

import (
	"sync"
	"time"

	"github.com/marmos91/asyncload/pkg/loader"
	"github.com/marmos91/asyncload/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterLoaderMetricsConstructor(NewLoaderMetrics)
	metrics.RegisterStoreMetricsConstructor(NewStoreMetrics)
}

// loaderMetrics is the Prometheus implementation of loader.Metrics.
type loaderMetrics struct {
	stageDuration   *prometheus.HistogramVec
	packagesTotal   *prometheus.CounterVec
	packageDuration *prometheus.HistogramVec
	ticksTotal      *prometheus.CounterVec
	tickDuration    prometheus.Histogram
	cyclesTotal     prometheus.Counter
	queueDepth      *prometheus.GaugeVec
}

var (
	loaderMu   sync.Mutex
	loaderReg  *prometheus.Registry
	loaderInst *loaderMetrics
)

// NewLoaderMetrics creates a new Prometheus-backed loader.Metrics instance.
// Collectors are registered once per registry; later calls share them.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewLoaderMetrics() loader.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	loaderMu.Lock()
	defer loaderMu.Unlock()
	if loaderInst != nil && loaderReg == reg {
		return loaderInst
	}

	loaderInst = &loaderMetrics{
		stageDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "asyncload_stage_duration_milliseconds",
				Help: "Duration of package stage events in milliseconds",
				Buckets: []float64{
					0.01, // 10µs - bookkeeping stages
					0.1,  // 100µs
					1,    // 1ms - small manifests
					10,   // 10ms - store reads
					100,  // 100ms - remote stores
					1000, // 1s
				},
			},
			[]string{"stage"},
		),
		packagesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncload_packages_total",
				Help: "Total number of finished packages by result",
			},
			[]string{"result"}, // "succeeded", "failed", "canceled"
		),
		packageDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "asyncload_package_duration_milliseconds",
				Help: "Time from package creation to finalization in milliseconds",
				Buckets: []float64{
					1,     // 1ms
					10,    // 10ms
					100,   // 100ms
					1000,  // 1s
					10000, // 10s - large dependency trees
				},
			},
			[]string{"result"},
		),
		ticksTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncload_ticks_total",
				Help: "Total number of TickAsyncLoading calls by result",
			},
			[]string{"result"}, // "complete", "timeout"
		),
		tickDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "asyncload_tick_duration_milliseconds",
				Help:    "Duration of TickAsyncLoading calls in milliseconds",
				Buckets: []float64{0.1, 1, 5, 16, 33, 100, 1000},
			},
		),
		cyclesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "asyncload_dependency_cycles_total",
				Help: "Total number of dependency cycles detected",
			},
		),
		queueDepth: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "asyncload_queue_depth",
				Help: "Current size of the loader collections",
			},
			[]string{"queue"}, // "requests", "events", "in_flight", "loaded"
		),
	}
	loaderReg = reg
	return loaderInst
}

func (m *loaderMetrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(milliseconds(duration))
}

func (m *loaderMetrics) RecordResult(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.packagesTotal.WithLabelValues(result).Inc()
	m.packageDuration.WithLabelValues(result).Observe(milliseconds(duration))
}

func (m *loaderMetrics) RecordTick(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ticksTotal.WithLabelValues(result).Inc()
	m.tickDuration.Observe(milliseconds(duration))
}

func (m *loaderMetrics) RecordCycle() {
	if m == nil {
		return
	}
	m.cyclesTotal.Inc()
}

func (m *loaderMetrics) SetQueueDepth(queued, events, inFlight, loaded int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues("requests").Set(float64(queued))
	m.queueDepth.WithLabelValues("events").Set(float64(events))
	m.queueDepth.WithLabelValues("in_flight").Set(float64(inFlight))
	m.queueDepth.WithLabelValues("loaded").Set(float64(loaded))
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
