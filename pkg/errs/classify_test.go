package errs

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
		want Kind
	}{
		{
			name: "snapshot exists by errno",
			env:  Envelope{Status: 500, Errno: 5},
			want: KindSnapshotExists,
		},
		{
			name: "volume not found by errno",
			env:  Envelope{Status: 500, Errno: 1},
			want: KindVolumeNotFound,
		},
		{
			name: "exhausted on create",
			env:  Envelope{Status: 500, Message: "New zvol size(123) exceeds available space on pool"},
			want: KindResourceExhausted,
		},
		{
			name: "busy delete clones",
			env:  Envelope{Status: 500, Class: "ZfsOeError", Message: "In order to delete a zvol, you must delete all of its clones first."},
			want: KindVolumeBusy,
		},
		{
			name: "busy delete children",
			env:  Envelope{Status: 500, Class: "ZfsCmdError", Message: "cannot destroy 'pool/vol': volume has children"},
			want: KindVolumeBusy,
		},
		{
			name: "zfs resource not found",
			env:  Envelope{Status: 500, Message: "Zfs resource: pool/vol not found in this pool"},
			want: KindVolumeNotFound,
		},
		{
			name: "clone dataset exists",
			env:  Envelope{Status: 500, Message: "cannot create 'pool/vol': dataset already exists"},
			want: KindVolumeExists,
		},
		{
			name: "filesystem exists",
			env:  Envelope{Status: 409, Message: "cannot create 'pool/fs': Filesystem already exists"},
			want: KindDatasetExists,
		},
		{
			name: "create conflict",
			env:  Envelope{Status: 409},
			want: KindVolumeExists,
		},
		{
			name: "lun conflict",
			env:  Envelope{Status: 409, Class: "ItemConflictError", Message: "Volume pool/vol is already used."},
			want: KindVolumeBusy,
		},
		{
			name: "target not found",
			env:  Envelope{Status: 404, Message: "Target with name iqn:grp-0 not found"},
			want: KindTargetNotFound,
		},
		{
			name: "generic not found",
			env:  Envelope{Status: 404},
			want: KindVolumeNotFound,
		},
		{
			name: "generic internal",
			env:  Envelope{Status: 503},
			want: KindOSInternal,
		},
		{
			name: "success maps to unknown (no error)",
			env:  Envelope{Status: 200},
			want: KindUnknown,
		},
		{
			name: "unrecognized failure is rest protocol",
			env:  Envelope{Status: 418, Message: "I'm a teapot"},
			want: KindRESTProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.env); got != tt.want {
				t.Errorf("Classify(%+v) = %v, want %v", tt.env, got, tt.want)
			}
		})
	}
}

func TestClassifyOrderFirstMatchWins(t *testing.T) {
	// errno=5 (exists) combined with a 500+ZfsOeError busy message: the
	// errno rule is earlier in the table and must win.
	env := Envelope{Status: 500, Errno: 5, Class: "ZfsOeError", Message: "you must delete all of its clones first"}
	if got := Classify(env); got != KindSnapshotExists {
		t.Errorf("Classify() = %v, want %v (first rule should win)", got, KindSnapshotExists)
	}
}
