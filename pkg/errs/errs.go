// Package errs implements the closed error taxonomy that the rest of the
// driver switches on, and the numeric exit codes derived from it.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a member of the closed error taxonomy. The driver never returns
// an error outside this set from a lifecycle operation; REST/envelope
// failures that don't match a classifier rule become KindRESTProtocol.
type Kind int

const (
	KindUnknown Kind = iota
	KindCommunicationFailure
	KindRESTProtocol
	KindOutdated
	KindVolumeNotFound
	KindSnapshotNotFound
	KindTargetNotFound
	KindPoolNotFound
	KindVolumeExists
	KindSnapshotExists
	KindDatasetExists
	KindVolumeBusy
	KindSnapshotBusy
	KindVolumeBusyWithDependents
	KindRollbackBlocked
	KindVIPNotFound
	KindResourceExhausted
	KindOSInternal
)

// Code is the stable numeric process-exit code for a Kind.
func (k Kind) Code() int {
	switch k {
	case KindUnknown:
		return 1
	case KindCommunicationFailure:
		return 10
	case KindRESTProtocol:
		return 11
	case KindOutdated:
		return 12
	case KindVolumeNotFound:
		return 20
	case KindSnapshotNotFound:
		return 21
	case KindTargetNotFound:
		return 22
	case KindPoolNotFound:
		return 23
	case KindVolumeExists:
		return 30
	case KindSnapshotExists:
		return 31
	case KindDatasetExists:
		return 32
	case KindVolumeBusy:
		return 40
	case KindSnapshotBusy:
		return 41
	case KindVolumeBusyWithDependents:
		return 42
	case KindRollbackBlocked:
		return 43
	case KindVIPNotFound:
		return 50
	case KindResourceExhausted:
		return 51
	case KindOSInternal:
		return 60
	default:
		return 1
	}
}

func (k Kind) String() string {
	switch k {
	case KindCommunicationFailure:
		return "CommunicationFailure"
	case KindRESTProtocol:
		return "RESTProtocol"
	case KindOutdated:
		return "Outdated"
	case KindVolumeNotFound:
		return "VolumeNotFound"
	case KindSnapshotNotFound:
		return "SnapshotNotFound"
	case KindTargetNotFound:
		return "TargetNotFound"
	case KindPoolNotFound:
		return "PoolNotFound"
	case KindVolumeExists:
		return "VolumeExists"
	case KindSnapshotExists:
		return "SnapshotExists"
	case KindDatasetExists:
		return "DatasetExists"
	case KindVolumeBusy:
		return "VolumeBusy"
	case KindSnapshotBusy:
		return "SnapshotBusy"
	case KindVolumeBusyWithDependents:
		return "VolumeBusyWithDependents"
	case KindRollbackBlocked:
		return "RollbackBlocked"
	case KindVIPNotFound:
		return "VIPNotFound"
	case KindResourceExhausted:
		return "ResourceExhausted"
	case KindOSInternal:
		return "OSInternal"
	default:
		return "Unknown"
	}
}

// DriverError is the concrete error type carried through the driver. Every
// taxonomy member is representable by one DriverError value; compound kinds
// (VolumeBusyWithDependents, RollbackBlocked) carry their structured payload
// in the Dependents/Rollback fields.
type DriverError struct {
	Kind       Kind
	Resource   string // e.g. volume/snapshot external id, target name
	Message    string
	Dependents []string // for VolumeBusyWithDependents / SnapshotBusyWithDependents
	Rollback   *RollbackInfo
	Cause      error
}

// RollbackInfo is the dependency set a blocked rollback would have destroyed.
type RollbackInfo struct {
	Volume         string
	Snapshot       string
	NewerSnapshots []string
	Clones         []string
	// CountSnapshots/CountClones hold appliance-reported counts when they
	// exceed what the local graph walk enumerated and are marked unknown.
	CountSnapshots   int
	CountClones      int
	SnapshotsUnknown bool
	ClonesUnknown    bool
}

func (e *DriverError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Resource != "" {
		fmt.Fprintf(&b, "(%s)", e.Resource)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if len(e.Dependents) > 0 {
		fmt.Fprintf(&b, " [dependents: %s]", strings.Join(e.Dependents, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *DriverError) Unwrap() error { return e.Cause }

// New builds a DriverError of the given kind.
func New(kind Kind, resource, message string) *DriverError {
	return &DriverError{Kind: kind, Resource: resource, Message: message}
}

// Wrap builds a DriverError of the given kind wrapping cause.
func Wrap(kind Kind, resource string, cause error) *DriverError {
	return &DriverError{Kind: kind, Resource: resource, Cause: cause}
}

// Is reports whether err is a DriverError of the given kind.
func Is(err error, kind Kind) bool {
	var de *DriverError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, or KindUnknown if err is not a
// DriverError.
func KindOf(err error) Kind {
	var de *DriverError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// ExitCode returns the process exit code for err: 0 if err is nil, the
// taxonomy code if err is a DriverError, and KindUnknown's code otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).Code()
}

// VolumeBusyWithDependents builds the compound error carrying the external
// ids of the clones that must be removed before volume can be deleted.
func VolumeBusyWithDependents(volume string, dependents []string) *DriverError {
	return &DriverError{
		Kind:       KindVolumeBusyWithDependents,
		Resource:   volume,
		Dependents: dependents,
		Message:    "volume has dependent clones that must be removed first",
	}
}

// SnapshotBusyWithDependents mirrors VolumeBusyWithDependents for snapshot
// deletion.
func SnapshotBusyWithDependents(snapshot string, dependents []string) *DriverError {
	return &DriverError{
		Kind:       KindSnapshotBusy,
		Resource:   snapshot,
		Dependents: dependents,
		Message:    "snapshot has dependent clones that must be removed first",
	}
}

// RollbackBlocked builds the compound error carrying the dependency set a
// blocked rollback would have destroyed.
func RollbackBlocked(info *RollbackInfo) *DriverError {
	return &DriverError{
		Kind:     KindRollbackBlocked,
		Resource: fmt.Sprintf("%s@%s", info.Volume, info.Snapshot),
		Message:  "rollback would destroy newer snapshots or clones",
		Rollback: info,
	}
}
