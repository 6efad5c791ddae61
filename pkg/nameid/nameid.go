// Package nameid implements the reversible mapping between externally
// supplied identifiers and the appliance's physical object names, and the
// class predicates that distinguish live volumes, snapshots, snapshot-mount
// clones, and tombstoned objects.
package nameid

import (
	"encoding/base32"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Current write prefixes.
const (
	prefixVolume       = "v_"
	prefixVolumeHidden = "vh_" // vh_<sanitized>_<b32>
	prefixSnapshot     = "s_"
	prefixSnapshotExt  = "se_" // se_<id>_<b32vol>
	prefixSnapshotB32  = "sb_" // sb_<b32id>[_<b32vol>]
	prefixTombstone    = "t_"
)

// Historical prefixes accepted for reading only.
const (
	prefixVolumeB32Legacy    = "vb_"
	prefixTombstoneExtLegacy = "te_"
	prefixAutosnapLegacy     = "autosnap_"
)

var safeID = regexp.MustCompile(`^[-\w]+$`)

var b32Enc = base32.StdEncoding

// encode base32-encodes s and replaces '=' padding with '-' so the result
// is safe to embed in a physical name.
func encode32(s string) string {
	enc := b32Enc.EncodeToString([]byte(s))
	return strings.ReplaceAll(enc, "=", "-")
}

// decode32 is the inverse of encode32.
func decode32(s string) (string, error) {
	padded := strings.ReplaceAll(s, "-", "=")
	raw, err := b32Enc.DecodeString(padded)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

var sanitizeDisallowed = regexp.MustCompile(`[^-\w]`)

func sanitize(s string) string {
	return sanitizeDisallowed.ReplaceAllString(s, "_")
}

// IsSafe reports whether id can be passed through verbatim after its class
// prefix.
func IsSafe(id string) bool {
	return id != "" && safeID.MatchString(id)
}

// VName encodes an external volume id into its physical name.
func VName(id string) string {
	if IsSafe(id) {
		return prefixVolume + id
	}
	return prefixVolumeHidden + sanitize(id) + "_" + encode32(id)
}

// SName encodes a snapshot id, optionally carrying its originating volume's
// external id, into its physical name.
func SName(sid string, vid *string) string {
	if IsSafe(sid) {
		if vid == nil {
			return prefixSnapshot + sid
		}
		return prefixSnapshotExt + sid + "_" + encode32(*vid)
	}
	if vid == nil {
		return prefixSnapshotB32 + encode32(sid)
	}
	return prefixSnapshotB32 + encode32(sid) + "_" + encode32(*vid)
}

// IDName strips and decodes a volume-class physical name back to its
// external id. It accepts any historical volume prefix.
func IDName(physical string) string {
	switch {
	case strings.HasPrefix(physical, prefixVolumeHidden):
		rest := strings.TrimPrefix(physical, prefixVolumeHidden)
		if idx := strings.LastIndex(rest, "_"); idx >= 0 {
			if decoded, err := decode32(rest[idx+1:]); err == nil {
				return decoded
			}
		}
		return rest
	case strings.HasPrefix(physical, prefixVolumeB32Legacy):
		rest := strings.TrimPrefix(physical, prefixVolumeB32Legacy)
		if decoded, err := decode32(rest); err == nil {
			return decoded
		}
		return rest
	case strings.HasPrefix(physical, prefixVolume):
		return strings.TrimPrefix(physical, prefixVolume)
	default:
		return physical
	}
}

// SNameToID decodes a snapshot-class physical name into its (snapshot id,
// originating volume id) pair. vid is nil when the name carries none.
// SNameToID is a total inverse of SName on SName's range.
func SNameToID(physical string) (sid string, vid *string) {
	switch {
	case strings.HasPrefix(physical, prefixSnapshotExt):
		rest := strings.TrimPrefix(physical, prefixSnapshotExt)
		idx := strings.LastIndex(rest, "_")
		if idx < 0 {
			return rest, nil
		}
		id := rest[:idx]
		if decoded, err := decode32(rest[idx+1:]); err == nil {
			return id, &decoded
		}
		return id, nil
	case strings.HasPrefix(physical, prefixSnapshotB32):
		rest := strings.TrimPrefix(physical, prefixSnapshotB32)
		parts := strings.SplitN(rest, "_", 2)
		sidDecoded, err := decode32(parts[0])
		if err != nil {
			sidDecoded = parts[0]
		}
		if len(parts) == 2 {
			if vidDecoded, err := decode32(parts[1]); err == nil {
				return sidDecoded, &vidDecoded
			}
		}
		return sidDecoded, nil
	case strings.HasPrefix(physical, prefixSnapshot):
		return strings.TrimPrefix(physical, prefixSnapshot), nil
	default:
		return physical, nil
	}
}

// SIDFromSName returns just the snapshot id half of SNameToID.
func SIDFromSName(physical string) string {
	sid, _ := SNameToID(physical)
	return sid
}

// VIDFromSName returns just the originating-volume half of SNameToID, or
// nil when the name carries none.
func VIDFromSName(physical string) *string {
	_, vid := SNameToID(physical)
	return vid
}

// IsVolume reports whether physical belongs to the live-volume class,
// accepting both current and historical volume prefixes.
func IsVolume(physical string) bool {
	if IsHidden(physical) {
		return false
	}
	return strings.HasPrefix(physical, prefixVolume) ||
		strings.HasPrefix(physical, prefixVolumeHidden) ||
		strings.HasPrefix(physical, prefixVolumeB32Legacy)
}

// IsSnapshot reports whether physical belongs to the snapshot class
// (including snapshot-mount clones, which are named via SName but live as
// ordinary volumes on the appliance — see "publish as LUN").
func IsSnapshot(physical string) bool {
	if IsHidden(physical) {
		return false
	}
	return strings.HasPrefix(physical, prefixSnapshot) ||
		strings.HasPrefix(physical, prefixSnapshotExt) ||
		strings.HasPrefix(physical, prefixSnapshotB32) ||
		strings.HasPrefix(physical, prefixAutosnapLegacy)
}

// IsHidden reports whether physical is a tombstoned object pending
// recursive cleanup.
func IsHidden(physical string) bool {
	return strings.HasPrefix(physical, prefixTombstone) ||
		strings.HasPrefix(physical, prefixTombstoneExtLegacy)
}

// Hidden renames a live physical name into a tombstone, appending a fresh
// 128-bit random token so tombstones of the same source never collide.
func Hidden(physical string) string {
	return prefixTombstone + physical + "_" + uuid.NewString()
}
