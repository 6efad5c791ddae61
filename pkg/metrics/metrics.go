// Package metrics provides Prometheus metrics for the jdssctl driver.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jdss"

// Driver operation labels for RecordOperation/NewOperationTimer.
const (
	OpVolumeCreate   = "VolumeCreate"
	OpVolumeClone    = "VolumeClone"
	OpVolumeResize   = "VolumeResize"
	OpVolumeRename   = "VolumeRename"
	OpVolumeDelete   = "VolumeDelete"
	OpVolumeRollback = "VolumeRollback"

	OpSnapshotCreate     = "SnapshotCreate"
	OpSnapshotDelete     = "SnapshotDelete"
	OpSnapshotPublishLUN = "SnapshotPublishLUN"
	OpSnapshotUnpublish  = "SnapshotUnpublish"
	OpSnapshotPublishNAS = "SnapshotPublishNAS"

	OpTargetAcquire = "TargetAcquire"
	OpTargetDetach  = "TargetDetach"

	OpNASVolumeCreate = "NASVolumeCreate"
	OpShareCreate     = "ShareCreate"
	OpShareDelete     = "ShareDelete"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of driver operations by operation type and status",
		},
		[]string{"operation", "status"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of driver operations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
		[]string{"operation"},
	)

	restRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rest_requests_total",
			Help:      "Total number of REST requests issued to the appliance by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	restRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rest_request_duration_seconds",
			Help:      "Duration of REST requests to the appliance",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"method"},
	)

	hostFailoversTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "host_failovers_total",
			Help:      "Total number of appliance host rotations due to connection failure",
		},
	)

	activeHostIndex = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_host_index",
			Help:      "Index of the currently active appliance host in the configured host list",
		},
	)

	volumeCapacityBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "volume_capacity_bytes",
			Help:      "Volume capacity in bytes",
		},
		[]string{"volume_id"},
	)
)

// RecordOperation records the outcome of a top-level driver operation.
func RecordOperation(operation, status string, duration time.Duration) {
	operationsTotal.WithLabelValues(operation, status).Inc()
	operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRESTRequest records a single REST call to the appliance.
func RecordRESTRequest(method, outcome string, duration time.Duration) {
	restRequestsTotal.WithLabelValues(method, outcome).Inc()
	restRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordHostFailover increments the host rotation counter.
func RecordHostFailover() {
	hostFailoversTotal.Inc()
}

// SetActiveHostIndex records which configured host is currently sticky-active.
func SetActiveHostIndex(idx int) {
	activeHostIndex.Set(float64(idx))
}

// SetVolumeCapacity sets the reported capacity of a volume.
func SetVolumeCapacity(volumeID string, bytes int64) {
	volumeCapacityBytes.WithLabelValues(volumeID).Set(float64(bytes))
}

// DeleteVolumeCapacity removes the capacity metric for a deleted volume.
func DeleteVolumeCapacity(volumeID string) {
	volumeCapacityBytes.DeleteLabelValues(volumeID)
}

// OperationTimer times a driver operation and records its outcome on
// completion.
type OperationTimer struct {
	start     time.Time
	operation string
}

// NewOperationTimer starts timing operation.
func NewOperationTimer(operation string) *OperationTimer {
	return &OperationTimer{start: time.Now(), operation: operation}
}

// ObserveSuccess records a successful operation.
func (t *OperationTimer) ObserveSuccess() {
	RecordOperation(t.operation, "success", time.Since(t.start))
}

// ObserveError records a failed operation.
func (t *OperationTimer) ObserveError() {
	RecordOperation(t.operation, "error", time.Since(t.start))
}
