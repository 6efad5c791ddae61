// Package snapgraph implements the transitive snapshot/clone graph engine
// rooted at a volume: listing the full DAG, filtering to busy
// snapshots, locating a snapshot's direct physical parent, picking the
// newest snapshot, and computing the dependency set a rollback would
// destroy.
package snapgraph

import (
	"context"
	"sort"
	"time"

	"github.com/jdss/jdssctl/pkg/jdssapi"
	"github.com/jdss/jdssctl/pkg/nameid"
)

// Node is one visited (volume, snapshot) pair in the traversal, together
// with the clone volumes that snapshot names.
type Node struct {
	Volume   string
	Snapshot jdssapi.Snapshot
	Clones   []string
}

// Engine walks the appliance's snapshot/clone graph through an API client.
type Engine struct {
	api *jdssapi.API
}

// New builds an Engine over api.
func New(api *jdssapi.API) *Engine {
	return &Engine{api: api}
}

// SplitClones splits a comma-separated clones field from a snapshot
// record into its individual physical clone names.
func SplitClones(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			if i > start {
				out = append(out, raw[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// ListAllVolumeSnapshots paginates all snapshots of v, then recurses into
// each clone volume named by a snapshot, visiting the transitive closure
// of the snapshot/clone DAG rooted at v. Revisits are
// suppressed by physical name since cloning always creates a fresh
// physical name and the appliance forbids cycles.
func (e *Engine) ListAllVolumeSnapshots(ctx context.Context, v string) ([]Node, error) {
	visited := map[string]bool{v: true}
	return e.walk(ctx, v, visited)
}

func (e *Engine) walk(ctx context.Context, v string, visited map[string]bool) ([]Node, error) {
	snaps, err := e.api.ListSnapshots(ctx, v)
	if err != nil {
		return nil, err
	}

	var nodes []Node
	for _, s := range snaps {
		clones := SplitClones(s.Clones)
		nodes = append(nodes, Node{Volume: v, Snapshot: s, Clones: clones})

		for _, c := range clones {
			if visited[c] {
				continue
			}
			visited[c] = true
			if !nameid.IsVolume(c) && !nameid.IsSnapshot(c) {
				continue
			}
			sub, err := e.walk(ctx, c, visited)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, sub...)
		}
	}
	return nodes, nil
}

// BusyOpts configures ListBusySnapshots exclusions.
type BusyOpts struct {
	ExcludeDedicatedVolumes   bool
	ExcludeDedicatedSnapshots bool
}

// ListBusySnapshots filters snaps to those whose clones, after optional
// exclusion by physical-name class, are non-empty.
func (e *Engine) ListBusySnapshots(ctx context.Context, v string, snaps []jdssapi.Snapshot, opts BusyOpts) ([]jdssapi.Snapshot, error) {
	var busy []jdssapi.Snapshot
	for _, s := range snaps {
		clones := SplitClones(s.Clones)
		var remaining []string
		for _, c := range clones {
			if opts.ExcludeDedicatedVolumes && nameid.IsVolume(c) {
				continue
			}
			if opts.ExcludeDedicatedSnapshots && nameid.IsSnapshot(c) {
				continue
			}
			remaining = append(remaining, c)
		}
		if len(remaining) > 0 {
			busy = append(busy, s)
		}
	}
	return busy, nil
}

// FindSnapshotParent performs a DFS down the snapshot→clone→snapshot chain
// starting at v, returning the physical volume that directly owns s, or
// "" if s is not reachable from v.
func (e *Engine) FindSnapshotParent(ctx context.Context, v, s string) (string, error) {
	return e.findParent(ctx, v, s, map[string]bool{v: true})
}

func (e *Engine) findParent(ctx context.Context, v, s string, visited map[string]bool) (string, error) {
	snaps, err := e.api.ListSnapshots(ctx, v)
	if err != nil {
		return "", err
	}
	for _, snap := range snaps {
		if snap.Name == s {
			return v, nil
		}
		for _, c := range SplitClones(snap.Clones) {
			if visited[c] {
				continue
			}
			visited[c] = true
			if !nameid.IsVolume(c) && !nameid.IsSnapshot(c) {
				continue
			}
			parent, err := e.findParent(ctx, c, s, visited)
			if err != nil {
				return "", err
			}
			if parent != "" {
				return parent, nil
			}
		}
	}
	return "", nil
}

// GetNewestSnapshotName returns the argmax of snaps by creation timestamp
// ("YYYY-MM-DD HH:MM:SS"), ties broken by lexicographic name.
// Returns "" for an empty slice.
func GetNewestSnapshotName(snaps []jdssapi.Snapshot) string {
	const layout = "2006-01-02 15:04:05"

	var newestName string
	var newestTime time.Time
	have := false

	for _, s := range snaps {
		t, err := time.Parse(layout, s.Creation)
		if err != nil {
			continue
		}
		switch {
		case !have:
			newestTime, newestName, have = t, s.Name, true
		case t.After(newestTime):
			newestTime, newestName = t, s.Name
		case t.Equal(newestTime) && s.Name < newestName:
			newestName = s.Name
		}
	}
	return newestName
}

// RollbackDependencies enumerates all snapshots of v strictly newer than s
// and all clones referenced by any of them.
func (e *Engine) RollbackDependencies(ctx context.Context, v, s string) (newerSnapshots, clones []string, err error) {
	const layout = "2006-01-02 15:04:05"

	snaps, err := e.api.ListSnapshots(ctx, v)
	if err != nil {
		return nil, nil, err
	}

	var target *jdssapi.Snapshot
	for i := range snaps {
		if snaps[i].Name == s {
			target = &snaps[i]
			break
		}
	}
	if target == nil {
		return nil, nil, nil
	}
	targetTime, err := time.Parse(layout, target.Creation)
	if err != nil {
		return nil, nil, nil
	}

	cloneSet := map[string]bool{}
	for _, snap := range snaps {
		t, perr := time.Parse(layout, snap.Creation)
		if perr != nil || !t.After(targetTime) {
			continue
		}
		newerSnapshots = append(newerSnapshots, snap.Name)
		for _, c := range SplitClones(snap.Clones) {
			cloneSet[c] = true
		}
	}
	for c := range cloneSet {
		clones = append(clones, c)
	}
	sort.Strings(newerSnapshots)
	sort.Strings(clones)
	return newerSnapshots, clones, nil
}
