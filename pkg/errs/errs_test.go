package errs

import (
	"errors"
	"testing"
)

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Fatalf("ExitCode(nil) should be 0")
	}

	err := New(KindVolumeNotFound, "myvol", "gone")
	if got := ExitCode(err); got != KindVolumeNotFound.Code() {
		t.Errorf("ExitCode() = %d, want %d", got, KindVolumeNotFound.Code())
	}

	if got := ExitCode(errors.New("plain error")); got != KindUnknown.Code() {
		t.Errorf("ExitCode() for a non-DriverError = %d, want %d", got, KindUnknown.Code())
	}
}

func TestIsAndKindOf(t *testing.T) {
	err := Wrap(KindCommunicationFailure, "host1,host2", errors.New("dial timeout"))
	if !Is(err, KindCommunicationFailure) {
		t.Errorf("Is() should report true for matching kind")
	}
	if Is(err, KindOSInternal) {
		t.Errorf("Is() should report false for non-matching kind")
	}
	if KindOf(err) != KindCommunicationFailure {
		t.Errorf("KindOf() = %v, want %v", KindOf(err), KindCommunicationFailure)
	}
	if !errors.Is(err, err.Cause) {
		t.Errorf("DriverError should unwrap to its cause")
	}
}

func TestVolumeBusyWithDependents(t *testing.T) {
	err := VolumeBusyWithDependents("vol1", []string{"clone-a", "clone-b"})
	if err.Kind != KindVolumeBusyWithDependents {
		t.Errorf("Kind = %v, want %v", err.Kind, KindVolumeBusyWithDependents)
	}
	if len(err.Dependents) != 2 {
		t.Errorf("Dependents = %v, want 2 entries", err.Dependents)
	}
	msg := err.Error()
	if msg == "" {
		t.Errorf("Error() should not be empty")
	}
}

func TestRollbackBlocked(t *testing.T) {
	info := &RollbackInfo{
		Volume:         "vol1",
		Snapshot:       "s1",
		NewerSnapshots: []string{"s2"},
		Clones:         nil,
	}
	err := RollbackBlocked(info)
	if err.Kind != KindRollbackBlocked {
		t.Errorf("Kind = %v, want %v", err.Kind, KindRollbackBlocked)
	}
	if err.Rollback.Volume != "vol1" || err.Rollback.Snapshot != "s1" {
		t.Errorf("Rollback payload not preserved: %+v", err.Rollback)
	}
}
