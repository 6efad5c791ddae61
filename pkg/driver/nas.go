package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/jdss/jdssctl/pkg/errs"
	"github.com/jdss/jdssctl/pkg/jdssapi"
	"github.com/jdss/jdssctl/pkg/nameid"
)

// CreateNASVolume creates a ZFS dataset backing a future share.
func (d *Driver) CreateNASVolume(ctx context.Context, id, quota, reservation string) error {
	return d.api.CreateNASVolume(ctx, nameid.VName(id), jdssapi.CreateNASVolumeOpts{
		Quota:       quota,
		Reservation: reservation,
	})
}

// DeleteNASVolume removes a NAS volume's backing dataset.
func (d *Driver) DeleteNASVolume(ctx context.Context, id string) error {
	return d.api.DeleteNASVolume(ctx, nameid.VName(id), true)
}

// ListNASVolumes lists the pool's NAS volumes.
func (d *Driver) ListNASVolumes(ctx context.Context) ([]jdssapi.NASVolume, error) {
	return d.api.ListNASVolumes(ctx)
}

// CreateShare ensures a backing NAS dataset and creates a synchronous
// NFS share over it, named after that dataset.
func (d *Driver) CreateShare(ctx context.Context, name, quota, reservation string) error {
	sharename := nameid.VName(name)

	if err := d.api.CreateNASVolume(ctx, sharename, jdssapi.CreateNASVolumeOpts{
		Quota:       quota,
		Reservation: reservation,
	}); err != nil && !errs.Is(err, errs.KindDatasetExists) {
		return err
	}

	path := fmt.Sprintf("%s/%s", d.cfg.Pool(), sharename)
	return d.api.CreateShare(ctx, sharename, path, jdssapi.CreateShareOpts{
		Active: true,
		NFS:    true,
		Sync:   true,
	})
}

// DeleteShare removes a share and its backing NAS volume.
func (d *Driver) DeleteShare(ctx context.Context, name string) error {
	sharename := nameid.VName(name)
	if err := d.api.DeleteShare(ctx, sharename); err != nil {
		return err
	}
	return d.api.DeleteNASVolume(ctx, sharename, false)
}

// ShareInfo is a client-facing share listing.
type ShareInfo struct {
	Name string
	Path string
}

// ListShares lists shares backed by volume-class datasets.
func (d *Driver) ListShares(ctx context.Context) ([]ShareInfo, error) {
	shares, err := d.api.ListShares(ctx)
	if err != nil {
		return nil, err
	}
	var out []ShareInfo
	for _, s := range shares {
		if !nameid.IsVolume(s.Name) {
			continue
		}
		out = append(out, ShareInfo{Name: nameid.IDName(s.Name), Path: s.Path})
	}
	return out, nil
}

// ResizeShare extends a share's backing dataset quota.
func (d *Driver) ResizeShare(ctx context.Context, name, quota string) error {
	return d.api.ExtendNASVolume(ctx, nameid.VName(name), quota)
}

// PublishNASSnapshotOpts configures PublishNASSnapshot.
type PublishNASSnapshotOpts struct {
	PollAttempts int
	PollDelay    time.Duration
}

// PublishNASSnapshot clones snapID of NAS volume volID into a dataset
// and exports it over NFS, polling for the appliance to populate the
// share's real mount path before returning it. On timeout, the share and
// clone are rolled back.
func (d *Driver) PublishNASSnapshot(ctx context.Context, volID, snapID string, opts PublishNASSnapshotOpts) (string, error) {
	dname := nameid.VName(volID)
	parentSnap := nameid.SName(snapID, nil)
	cname := nameid.SName(snapID, &volID)

	if err := d.api.CreateNASClone(ctx, dname, parentSnap, cname); err != nil && !errs.Is(err, errs.KindDatasetExists) {
		return "", err
	}

	path := fmt.Sprintf("%s/%s", d.cfg.Pool(), cname)
	if err := d.api.CreateShare(ctx, cname, path, jdssapi.CreateShareOpts{
		Active: true,
		NFS:    true,
		Sync:   true,
	}); err != nil && !errs.Is(err, errs.KindDatasetExists) {
		return "", err
	}

	attempts := opts.PollAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := opts.PollDelay
	if delay <= 0 {
		delay = time.Second
	}

	for i := 0; i < attempts; i++ {
		share, err := d.api.GetShare(ctx, cname)
		if err == nil && share.RealPath != "" {
			return share.RealPath, nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	if err := d.api.DeleteShare(ctx, cname); err != nil {
		return "", err
	}
	if err := d.api.DeleteNASClone(ctx, cname); err != nil {
		return "", err
	}
	return "", errs.New(errs.KindOSInternal, cname, "share never reported a mount path")
}

// CIFSShareOpts configures EnsureCIFSShare.
type CIFSShareOpts struct {
	Quota       string
	Reservation string
	User        string
	Password    string
}

// EnsureCIFSShare ensures the backing NAS volume, CIFS user, and share
// exist, then replaces the share's user set with exactly {user}. Each
// step is idempotent.
func (d *Driver) EnsureCIFSShare(ctx context.Context, name string, opts CIFSShareOpts) error {
	sharename := nameid.VName(name)

	if err := d.api.CreateNASVolume(ctx, sharename, jdssapi.CreateNASVolumeOpts{
		Quota:       opts.Quota,
		Reservation: opts.Reservation,
	}); err != nil && !errs.Is(err, errs.KindDatasetExists) {
		return err
	}

	if err := d.api.CreateShareUser(ctx, sharename, jdssapi.ShareUser{
		Name:     opts.User,
		Password: opts.Password,
	}); err != nil && !errs.Is(err, errs.KindDatasetExists) {
		return err
	}

	path := fmt.Sprintf("%s/%s", d.cfg.Pool(), sharename)
	if err := d.api.CreateShare(ctx, sharename, path, jdssapi.CreateShareOpts{
		Active: true,
		CIFS:   true,
		Sync:   true,
	}); err != nil && !errs.Is(err, errs.KindDatasetExists) {
		return err
	}

	return d.api.SetShareUsers(ctx, sharename, []jdssapi.ShareUser{{Name: opts.User}})
}
