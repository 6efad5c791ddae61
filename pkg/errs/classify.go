package errs

import (
	"regexp"
	"strings"
)

// Envelope is the appliance error envelope as carried by a REST response.
type Envelope struct {
	Status  int
	Class   string
	Message string
	Errno   int
}

// rule is one (predicate, kind) pair in the ordered classifier table.
// Rules are checked in order; the first match wins.
type rule struct {
	name    string
	kind    Kind
	matches func(Envelope) bool
}

var exhaustedPattern = regexp.MustCompile(`New zvol size\(\d+\) exceeds available space`)

// defaultRules is the pattern-rule table mapping the appliance's REST
// envelopes onto the closed taxonomy. Extending to a new appliance version
// means appending (or inserting ahead of a conflicting) rule here.
var defaultRules = []rule{
	{
		name: "snapshot-exists-errno",
		kind: KindSnapshotExists,
		matches: func(e Envelope) bool { return e.Errno == 5 },
	},
	{
		name: "volume-not-found-errno",
		kind: KindVolumeNotFound,
		matches: func(e Envelope) bool { return e.Errno == 1 },
	},
	{
		name: "create-exhausted",
		kind: KindResourceExhausted,
		matches: func(e Envelope) bool {
			return e.Status == 500 && exhaustedPattern.MatchString(e.Message)
		},
	},
	{
		name: "delete-busy-clones",
		kind: KindVolumeBusy,
		matches: func(e Envelope) bool {
			return e.Status == 500 && e.Class == "ZfsOeError" &&
				strings.Contains(e.Message, "you must delete all of its clones first")
		},
	},
	{
		name: "delete-busy-children",
		kind: KindVolumeBusy,
		matches: func(e Envelope) bool {
			return e.Status == 500 && e.Class == "ZfsCmdError" &&
				strings.Contains(e.Message, "cannot destroy") &&
				strings.Contains(e.Message, "volume has children")
		},
	},
	{
		name: "zfs-resource-not-found",
		kind: KindVolumeNotFound,
		matches: func(e Envelope) bool {
			return strings.Contains(e.Message, "Zfs resource:") && strings.Contains(e.Message, "not found")
		},
	},
	{
		name: "clone-dataset-exists",
		kind: KindVolumeExists,
		matches: func(e Envelope) bool {
			return strings.Contains(e.Message, "dataset already exists")
		},
	},
	{
		name: "filesystem-exists",
		kind: KindDatasetExists,
		matches: func(e Envelope) bool {
			return strings.Contains(e.Message, "Filesystem already exists")
		},
	},
	{
		name: "lun-conflict",
		kind: KindVolumeBusy,
		matches: func(e Envelope) bool {
			return e.Class == "ItemConflictError" && strings.Contains(e.Message, "is already used")
		},
	},
	{
		name: "volume-create-conflict",
		kind: KindVolumeExists,
		matches: func(e Envelope) bool { return e.Status == 409 },
	},
	{
		name: "target-not-found",
		kind: KindTargetNotFound,
		matches: func(e Envelope) bool {
			return e.Status == 404 && strings.Contains(e.Message, "Target") && strings.Contains(e.Message, "not found")
		},
	},
	{
		name: "not-found-generic",
		kind: KindVolumeNotFound,
		matches: func(e Envelope) bool { return e.Status == 404 },
	},
	{
		name: "internal-generic",
		kind: KindOSInternal,
		matches: func(e Envelope) bool { return e.Status >= 500 },
	},
}

// Classify maps a REST envelope onto the closed taxonomy by walking the
// ordered rule table and returning the first match. An envelope that
// matches nothing becomes KindRESTProtocol.
func Classify(e Envelope) Kind {
	for _, r := range defaultRules {
		if r.matches(e) {
			return r.kind
		}
	}
	if e.Status >= 200 && e.Status < 300 {
		return KindUnknown
	}
	return KindRESTProtocol
}

// FromEnvelope builds a DriverError of the classified kind, carrying the
// envelope's message and the named resource for context.
func FromEnvelope(resource string, e Envelope) *DriverError {
	kind := Classify(e)
	return &DriverError{
		Kind:     kind,
		Resource: resource,
		Message:  e.Message,
	}
}
