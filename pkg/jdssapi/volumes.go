package jdssapi

import (
	"context"
	"fmt"
)

// Volume is the appliance's zvol record (a subset of the properties the
// driver actually consumes).
type Volume struct {
	Name           string `json:"name"`
	FullName       string `json:"full_name"`
	VolSize        string `json:"volsize"`
	Used           string `json:"used"`
	Available      string `json:"available"`
	Referenced     string `json:"referenced"`
	Origin         string `json:"origin"`
	IsClone        bool   `json:"is_clone"`
	VolBlockSize   string `json:"volblocksize"`
	Reservation    string `json:"reservation"`
	RefReservation string `json:"refreservation"`
	Compression    string `json:"compression"`
	Readonly       string `json:"readonly"`
	Creation       string `json:"creation"`
}

// CreateVolumeOpts configures CreateVolume.
type CreateVolumeOpts struct {
	Size      int64
	Sparse    bool
	BlockSize string
}

// CreateVolume issues POST /volumes.
func (a *API) CreateVolume(ctx context.Context, physical string, opts CreateVolumeOpts) error {
	body := map[string]any{
		"name":   physical,
		"size":   fmt.Sprintf("%d", opts.Size),
		"sparse": opts.Sparse,
	}
	if opts.BlockSize != "" {
		body["blocksize"] = opts.BlockSize
	}
	return a.post(ctx, physical, "/volumes", body, nil)
}

// GetVolume issues GET /volumes/<name>.
func (a *API) GetVolume(ctx context.Context, physical string) (*Volume, error) {
	var v Volume
	if err := a.get(ctx, physical, "/volumes/"+physical, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVolumes paginates GET /volumes.
func (a *API) ListVolumes(ctx context.Context) ([]Volume, error) {
	return listPaged[Volume](ctx, a, "volumes", func(p int) string { return pagePath("/volumes", p) })
}

// ExtendVolume issues PUT /volumes/<name> with {size}.
func (a *API) ExtendVolume(ctx context.Context, physical string, size int64) error {
	body := map[string]any{"size": fmt.Sprintf("%d", size)}
	return a.put(ctx, physical, "/volumes/"+physical, body, nil)
}

// ModifyVolume issues PUT /volumes/<name> with arbitrary properties.
func (a *API) ModifyVolume(ctx context.Context, physical string, props map[string]any) error {
	return a.put(ctx, physical, "/volumes/"+physical, props, nil)
}

// DeleteVolumeOpts configures DeleteVolume.
type DeleteVolumeOpts struct {
	RecursiveChildren bool
	ForceUmount       bool
}

// DeleteVolume issues DELETE /volumes/<name>.
func (a *API) DeleteVolume(ctx context.Context, physical string, opts DeleteVolumeOpts) error {
	body := map[string]any{}
	if opts.RecursiveChildren {
		body["recursively_children"] = true
	}
	if opts.ForceUmount {
		body["force_umount"] = true
	}
	return a.delete(ctx, physical, "/volumes/"+physical, body)
}

// CloneVolumeOpts configures CloneVolume.
type CloneVolumeOpts struct {
	Sparse   bool
	Readonly bool
}

// CloneVolume issues POST /volumes/<src>/clone.
func (a *API) CloneVolume(ctx context.Context, src, snapshot, newName string, opts CloneVolumeOpts) error {
	body := map[string]any{
		"name":     newName,
		"snapshot": snapshot,
		"sparse":   opts.Sparse,
		"readonly": opts.Readonly,
	}
	return a.post(ctx, newName, "/volumes/"+src+"/clone", body, nil)
}
