package jdssapi

import "context"

// NASVolume is a ZFS dataset record used as the backing store for shares.
type NASVolume struct {
	Name        string `json:"name"`
	Quota       string `json:"quota"`
	Reservation string `json:"reservation"`
	Mountpoint  string `json:"mountpoint"`
}

// CreateNASVolumeOpts configures CreateNASVolume.
type CreateNASVolumeOpts struct {
	Quota       string
	Reservation string
}

// CreateNASVolume issues POST /filesystems.
func (a *API) CreateNASVolume(ctx context.Context, name string, opts CreateNASVolumeOpts) error {
	body := map[string]any{"name": name, "quota": opts.Quota}
	if opts.Reservation != "" {
		body["reservation"] = opts.Reservation
	}
	return a.post(ctx, name, "/filesystems", body, nil)
}

// GetNASVolume issues GET /filesystems/<name>.
func (a *API) GetNASVolume(ctx context.Context, name string) (*NASVolume, error) {
	var v NASVolume
	if err := a.get(ctx, name, "/filesystems/"+name, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListNASVolumes paginates GET /filesystems.
func (a *API) ListNASVolumes(ctx context.Context) ([]NASVolume, error) {
	return listPaged[NASVolume](ctx, a, "filesystems", func(p int) string { return pagePath("/filesystems", p) })
}

// DeleteNASVolume issues DELETE /filesystems/<name>.
func (a *API) DeleteNASVolume(ctx context.Context, name string, recursive bool) error {
	body := map[string]any{}
	if recursive {
		body["recursively_children"] = true
	}
	return a.delete(ctx, name, "/filesystems/"+name, body)
}

// ExtendNASVolume issues PUT /filesystems/<name> with a new quota.
func (a *API) ExtendNASVolume(ctx context.Context, name, quota string) error {
	return a.put(ctx, name, "/filesystems/"+name, map[string]any{"quota": quota}, nil)
}

// NASSnapshot is a dataset snapshot record.
type NASSnapshot struct {
	Name     string `json:"name"`
	Creation string `json:"creation"`
	Clones   string `json:"clones"`
}

// CreateNASSnapshot issues POST /filesystems/<vol>/snapshots.
func (a *API) CreateNASSnapshot(ctx context.Context, vol, snap string) error {
	body := map[string]any{"snapshot_name": snap}
	return a.post(ctx, vol+"@"+snap, "/filesystems/"+vol+"/snapshots", body, nil)
}

// GetNASSnapshot issues GET /filesystems/<vol>/snapshots/<snap>.
func (a *API) GetNASSnapshot(ctx context.Context, vol, snap string) (*NASSnapshot, error) {
	var s NASSnapshot
	if err := a.get(ctx, vol+"@"+snap, "/filesystems/"+vol+"/snapshots/"+snap, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListNASSnapshots paginates GET /filesystems/<vol>/snapshots.
func (a *API) ListNASSnapshots(ctx context.Context, vol string) ([]NASSnapshot, error) {
	base := "/filesystems/" + vol + "/snapshots"
	return listPaged[NASSnapshot](ctx, a, vol, func(p int) string { return pagePath(base, p) })
}

// DeleteNASSnapshot issues DELETE /filesystems/<vol>/snapshots/<snap>.
func (a *API) DeleteNASSnapshot(ctx context.Context, vol, snap string) error {
	return a.delete(ctx, vol+"@"+snap, "/filesystems/"+vol+"/snapshots/"+snap, nil)
}

// CreateNASClone issues POST /filesystems/<vol>/clone, cloning a dataset
// snapshot into a new dataset.
func (a *API) CreateNASClone(ctx context.Context, vol, snap, newName string) error {
	body := map[string]any{"name": newName, "snapshot": snap}
	return a.post(ctx, newName, "/filesystems/"+vol+"/clone", body, nil)
}

// DeleteNASClone issues DELETE /filesystems/<name>.
func (a *API) DeleteNASClone(ctx context.Context, name string) error {
	return a.delete(ctx, name, "/filesystems/"+name, nil)
}

// ListNASClones issues GET /filesystems/<vol>/clones.
func (a *API) ListNASClones(ctx context.Context, vol string) ([]string, error) {
	var names []string
	if err := a.get(ctx, vol, "/filesystems/"+vol+"/clones", &names); err != nil {
		return nil, err
	}
	return names, nil
}
