package driver

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/jdss/jdssctl/pkg/errs"
	"github.com/jdss/jdssctl/pkg/jdssapi"
	"github.com/jdss/jdssctl/pkg/nameid"
)

// CreateSnapshot creates snapID on volID, failing SnapshotExists if a
// snapshot of that physical name already exists.
func (d *Driver) CreateSnapshot(ctx context.Context, volID, snapID string) error {
	vname := nameid.VName(volID)
	sname := nameid.SName(snapID, nil)

	snaps, err := d.api.ListSnapshots(ctx, vname)
	if err != nil {
		return err
	}
	for _, s := range snaps {
		if s.Name == sname {
			return errs.New(errs.KindSnapshotExists, snapID, "snapshot already exists on volume "+volID)
		}
	}
	return d.api.CreateSnapshot(ctx, vname, sname)
}

// deleteSnapshot implements the hidden-parent/live-parent and
// clone-class-aware snapshot removal the reference driver performs: it
// resolves the snapshot's true physical parent, recursively tears down
// any clones that depend on it, and only then deletes the snapshot
// itself (or its hidden parent, if that parent has no other snapshots
// left).
func (d *Driver) deleteSnapshot(ctx context.Context, vname, sname string) error {
	pname, err := d.graph.FindSnapshotParent(ctx, vname, sname)
	if err != nil {
		return err
	}
	if pname == "" {
		return nil
	}

	clones, err := d.listSnapshotClones(ctx, pname, sname)
	if err != nil {
		return err
	}

	for _, c := range clones {
		switch {
		case nameid.IsHidden(c):
			descendants, derr := d.graph.ListAllVolumeSnapshots(ctx, c)
			if derr != nil {
				return derr
			}
			if len(descendants) > 0 {
				var names []string
				for _, n := range descendants {
					names = append(names, nameid.SIDFromSName(n.Snapshot.Name))
				}
				return errs.SnapshotBusyWithDependents(nameid.SIDFromSName(sname), names)
			}
			if err := d.deleteVolume(ctx, c, false, true); err != nil {
				return err
			}
		case nameid.IsVolume(c):
			return errs.SnapshotBusyWithDependents(nameid.SIDFromSName(sname), []string{nameid.IDName(c)})
		case nameid.IsSnapshot(c):
			if err := d.deleteVolume(ctx, c, false, true); err != nil {
				return err
			}
		}
	}

	if nameid.IsHidden(pname) {
		siblings, err := d.api.ListSnapshots(ctx, pname)
		if err != nil {
			return err
		}
		if len(siblings) > 1 {
			return d.api.DeleteSnapshot(ctx, vname, sname, jdssapi.DeleteSnapshotOpts{ForceUmount: true})
		}
		return d.deleteVolume(ctx, pname, true, true)
	}
	if nameid.IsVolume(pname) {
		return d.api.DeleteSnapshot(ctx, vname, sname, jdssapi.DeleteSnapshotOpts{ForceUmount: true})
	}
	return nil
}

// DeleteSnapshot removes snapID from volID. Idempotent if the snapshot
// is already gone.
func (d *Driver) DeleteSnapshot(ctx context.Context, volID, snapID string) error {
	vname := nameid.VName(volID)
	sname := nameid.SName(snapID, nil)
	return d.deleteSnapshot(ctx, vname, sname)
}

// PublishSnapshotOpts configures PublishSnapshotAsLUN.
type PublishSnapshotOpts struct {
	TargetPrefix  string
	TargetGroup   string
	ProviderAuth  string
	LunsPerTarget int
	Sparse        bool
}

// PublishSnapshotAsLUN clones snapID into a read-only mount volume and
// attaches it to an iSCSI target so a client can read it. The clone and
// its export are rolled back on any downstream failure.
func (d *Driver) PublishSnapshotAsLUN(ctx context.Context, volID, snapID string, opts PublishSnapshotOpts) (*Publication, error) {
	ovname := nameid.VName(volID)
	sname := nameid.SName(snapID, nil)
	scname := nameid.SName(snapID, &volID)

	err := d.cloneObject(ctx, scname, sname, ovname, false, opts.Sparse, true)
	if err != nil && !(errs.Is(err, errs.KindVolumeExists) && nameid.IsSnapshot(scname)) {
		return nil, err
	}

	pub, err := d.attachVolumeToTarget(ctx, opts.TargetPrefix, opts.TargetGroup, scname, EnsureTargetVolumeOpts{
		ProviderAuth:  opts.ProviderAuth,
		LunsPerTarget: opts.LunsPerTarget,
	})
	if err != nil {
		if derr := d.deleteVolume(ctx, scname, true, true); derr != nil {
			klog.Warningf("cleanup of mount clone %s failed after publish error %v: %v", scname, err, derr)
		}
		return nil, err
	}
	return pub, nil
}

// UnpublishSnapshot detaches snapID's mount clone from its target and
// deletes the clone.
func (d *Driver) UnpublishSnapshot(ctx context.Context, volID, snapID, targetPrefix, targetGroup string) error {
	scname := nameid.SName(snapID, &volID)

	if err := d.detachVolumeFromTarget(ctx, targetPrefix, targetGroup, scname); err != nil {
		return err
	}
	return d.deleteVolume(ctx, scname, true, false)
}
