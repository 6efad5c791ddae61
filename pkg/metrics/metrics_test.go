package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOperation(t *testing.T) {
	RecordOperation(OpVolumeCreate, "success", 50*time.Millisecond)

	got := testutil.ToFloat64(operationsTotal.WithLabelValues(OpVolumeCreate, "success"))
	if got < 1 {
		t.Fatalf("operationsTotal{%s,success} = %v, want >= 1", OpVolumeCreate, got)
	}
}

func TestRecordRESTRequest(t *testing.T) {
	RecordRESTRequest("GET", "success", 5*time.Millisecond)

	got := testutil.ToFloat64(restRequestsTotal.WithLabelValues("GET", "success"))
	if got < 1 {
		t.Fatalf("restRequestsTotal{GET,success} = %v, want >= 1", got)
	}
}

func TestRecordHostFailover(t *testing.T) {
	before := testutil.ToFloat64(hostFailoversTotal)
	RecordHostFailover()
	after := testutil.ToFloat64(hostFailoversTotal)
	if after != before+1 {
		t.Fatalf("hostFailoversTotal = %v, want %v", after, before+1)
	}
}

func TestSetActiveHostIndex(t *testing.T) {
	SetActiveHostIndex(2)
	if got := testutil.ToFloat64(activeHostIndex); got != 2 {
		t.Fatalf("activeHostIndex = %v, want 2", got)
	}
}

func TestVolumeCapacityLifecycle(t *testing.T) {
	SetVolumeCapacity("vol1", 1<<30)
	if got := testutil.ToFloat64(volumeCapacityBytes.WithLabelValues("vol1")); got != 1<<30 {
		t.Fatalf("volumeCapacityBytes{vol1} = %v, want %v", got, 1<<30)
	}

	DeleteVolumeCapacity("vol1")
	if got := testutil.CollectAndCount(volumeCapacityBytes, "jdss_volume_capacity_bytes"); got != 0 {
		t.Fatalf("volumeCapacityBytes series count after delete = %d, want 0", got)
	}
}

func TestOperationTimerObserveSuccessAndError(t *testing.T) {
	before := testutil.ToFloat64(operationsTotal.WithLabelValues(OpSnapshotCreate, "success"))
	timer := NewOperationTimer(OpSnapshotCreate)
	timer.ObserveSuccess()
	after := testutil.ToFloat64(operationsTotal.WithLabelValues(OpSnapshotCreate, "success"))
	if after != before+1 {
		t.Fatalf("operationsTotal{%s,success} = %v, want %v", OpSnapshotCreate, after, before+1)
	}

	beforeErr := testutil.ToFloat64(operationsTotal.WithLabelValues(OpSnapshotDelete, "error"))
	errTimer := NewOperationTimer(OpSnapshotDelete)
	errTimer.ObserveError()
	afterErr := testutil.ToFloat64(operationsTotal.WithLabelValues(OpSnapshotDelete, "error"))
	if afterErr != beforeErr+1 {
		t.Fatalf("operationsTotal{%s,error} = %v, want %v", OpSnapshotDelete, afterErr, beforeErr+1)
	}
}
