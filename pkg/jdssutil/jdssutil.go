// Package jdssutil collects small stateless helpers shared by the target
// allocator and the CLI: lowest-free-integer search and appliance size
// string parsing.
package jdssutil

import (
	"regexp"
	"sort"
	"strconv"
)

// sizeExpr matches the appliance's accepted size suffixes.
var sizeExpr = regexp.MustCompile(`^(\d+)([GgMmKk]?)$`)

// ParseSize parses a size string like "10G", "512M", "2048" (bytes with no
// suffix) into bytes. ok is false when s does not match the accepted
// grammar.
func ParseSize(s string) (bytes int64, ok bool) {
	m := sizeExpr.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "G", "g":
		return n * 1 << 30, true
	case "M", "m":
		return n * 1 << 20, true
	case "K", "k":
		return n * 1 << 10, true
	default:
		return n, true
	}
}

// LowestFreeInt returns the smallest non-negative integer not present in
// used. Used by the target/LUN allocator and the `getfreename` CLI
// supplement.
func LowestFreeInt(used []int) int {
	if len(used) == 0 {
		return 0
	}
	seen := make(map[int]bool, len(used))
	for _, n := range used {
		seen[n] = true
	}
	sorted := append([]int(nil), used...)
	sort.Ints(sorted)
	candidate := 0
	for _, n := range sorted {
		if n == candidate {
			candidate++
		} else if n > candidate {
			break
		}
	}
	return candidate
}

// LowestFreeIntBelow returns the smallest non-negative integer below bound
// not present in used, or -1 if [0,bound) is fully occupied. Used by the
// per-target LUN allocator, where bound is luns_per_target.
func LowestFreeIntBelow(used []int, bound int) int {
	seen := make(map[int]bool, len(used))
	for _, n := range used {
		seen[n] = true
	}
	for i := 0; i < bound; i++ {
		if !seen[i] {
			return i
		}
	}
	return -1
}
