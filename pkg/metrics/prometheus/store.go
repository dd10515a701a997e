package prometheus

import (
	"errors"
	"sync"
	"time"

	"github.com/marmos91/asyncload/pkg/metrics"
	"github.com/marmos91/asyncload/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// storeMetrics is the Prometheus implementation of store.Metrics.
type storeMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
}

var (
	storeMu   sync.Mutex
	storeReg  *prometheus.Registry
	storeInst *storeMetrics
)

// NewStoreMetrics creates a new Prometheus-backed store.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewStoreMetrics() store.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	storeMu.Lock()
	defer storeMu.Unlock()
	if storeInst != nil && storeReg == reg {
		return storeInst
	}

	storeInst = &storeMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncload_store_operations_total",
				Help: "Total number of package store operations by store type, operation and status",
			},
			[]string{"store", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "asyncload_store_operation_duration_milliseconds",
				Help: "Duration of package store operations in milliseconds",
				Buckets: []float64{
					0.1,  // 100µs - memory store
					1,    // 1ms - local disk, badger
					10,   // 10ms - sql
					50,   // 50ms
					100,  // 100ms - s3
					500,  // 500ms
					1000, // 1s
					5000, // 5s - large objects
				},
			},
			[]string{"store", "operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncload_store_bytes_total",
				Help: "Total bytes read from or written to package stores",
			},
			[]string{"store", "operation"},
		),
	}
	storeReg = reg
	return storeInst
}

func (m *storeMetrics) ObserveOperation(storeType, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(storeType, operation, status(err)).Inc()
	m.operationDuration.WithLabelValues(storeType, operation).Observe(milliseconds(duration))
}

func (m *storeMetrics) RecordBytes(storeType, operation string, bytes int64) {
	if m == nil {
		return
	}
	m.bytesTransferred.WithLabelValues(storeType, operation).Add(float64(bytes))
}

func status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, store.ErrPackageNotFound):
		return "not_found"
	default:
		return "error"
	}
}
