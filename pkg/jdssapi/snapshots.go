package jdssapi

import "context"

// Snapshot is the appliance's snapshot record.
type Snapshot struct {
	Name       string `json:"name"`
	Guid       string `json:"guid"`
	Creation   string `json:"creation"`
	Referenced string `json:"referenced"`
	Used       string `json:"used"`
	Clones     string `json:"clones"` // comma-separated physical names
}

// RollbackInfo reports how many dependents a rollback would affect.
type RollbackInfo struct {
	Clones    int `json:"clones"`
	Snapshots int `json:"snapshots"`
}

// CreateSnapshot issues POST /volumes/<vol>/snapshots.
func (a *API) CreateSnapshot(ctx context.Context, vol, snap string) error {
	body := map[string]any{"snapshot_name": snap}
	return a.post(ctx, vol+"@"+snap, "/volumes/"+vol+"/snapshots", body, nil)
}

// GetSnapshot issues GET /volumes/<vol>/snapshots/<snap>.
func (a *API) GetSnapshot(ctx context.Context, vol, snap string) (*Snapshot, error) {
	var s Snapshot
	if err := a.get(ctx, vol+"@"+snap, "/volumes/"+vol+"/snapshots/"+snap, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSnapshots paginates GET /volumes/<vol>/snapshots.
func (a *API) ListSnapshots(ctx context.Context, vol string) ([]Snapshot, error) {
	base := "/volumes/" + vol + "/snapshots"
	return listPaged[Snapshot](ctx, a, vol, func(p int) string { return pagePath(base, p) })
}

// DeleteSnapshotOpts configures DeleteSnapshot.
type DeleteSnapshotOpts struct {
	RecursiveChildren bool
	ForceUmount       bool
}

// DeleteSnapshot issues DELETE /volumes/<vol>/snapshots/<snap>.
func (a *API) DeleteSnapshot(ctx context.Context, vol, snap string, opts DeleteSnapshotOpts) error {
	body := map[string]any{}
	if opts.RecursiveChildren {
		body["recursively_children"] = true
	}
	if opts.ForceUmount {
		body["force_umount"] = true
	}
	return a.delete(ctx, vol+"@"+snap, "/volumes/"+vol+"/snapshots/"+snap, body)
}

// GetSnapshotRollback issues GET .../snapshots/<snap>/rollback.
func (a *API) GetSnapshotRollback(ctx context.Context, vol, snap string) (*RollbackInfo, error) {
	var info RollbackInfo
	path := "/volumes/" + vol + "/snapshots/" + snap + "/rollback"
	if err := a.get(ctx, vol+"@"+snap, path, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Rollback issues POST .../snapshots/<snap>/rollback.
func (a *API) Rollback(ctx context.Context, vol, snap string) error {
	path := "/volumes/" + vol + "/snapshots/" + snap + "/rollback"
	return a.post(ctx, vol+"@"+snap, path, nil, nil)
}
