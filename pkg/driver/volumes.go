package driver

import (
	"context"
	"regexp"

	"k8s.io/klog/v2"

	"github.com/jdss/jdssctl/pkg/errs"
	"github.com/jdss/jdssctl/pkg/jdssapi"
	"github.com/jdss/jdssctl/pkg/jdssutil"
	"github.com/jdss/jdssctl/pkg/nameid"
	"github.com/jdss/jdssctl/pkg/snapgraph"
)

var sizePattern = regexp.MustCompile(`^\d+[GgMmKk]?$`)

// CreateVolume issues the appliance lun-create call for id.
func (d *Driver) CreateVolume(ctx context.Context, id string, size int64, sparse bool, blockSize string) error {
	physical := nameid.VName(id)
	klog.V(4).Infof("create volume %s size %d sparse %v", id, size, sparse)
	return d.api.CreateVolume(ctx, physical, jdssapi.CreateVolumeOpts{
		Size:      size,
		Sparse:    sparse,
		BlockSize: blockSize,
	})
}

// cloneObject clones ovname (optionally via a snapshot named sname) into
// cvname. If createSnapshot is set, sname is created as an anonymous
// snapshot of ovname first and rolled back on any downstream failure.
func (d *Driver) cloneObject(ctx context.Context, cvname, sname, ovname string, createSnapshot, sparse, readonly bool) error {
	klog.V(4).Infof("cloning %s to %s", ovname, cvname)

	if createSnapshot {
		if err := d.api.CreateSnapshot(ctx, ovname, sname); err != nil {
			return err
		}
	}

	err := d.api.CloneVolume(ctx, ovname, sname, cvname, jdssapi.CloneVolumeOpts{
		Sparse:   sparse,
		Readonly: readonly,
	})
	if err == nil {
		return nil
	}

	if errs.Is(err, errs.KindVolumeExists) && nameid.IsSnapshot(cvname) {
		klog.V(4).Infof("volume exists but %s is a snapshot mount, treating as idempotent", cvname)
		return nil
	}

	if createSnapshot {
		if derr := d.api.DeleteSnapshot(ctx, ovname, sname, jdssapi.DeleteSnapshotOpts{
			RecursiveChildren: true,
			ForceUmount:       true,
		}); derr != nil {
			klog.Warningf("physical snapshot %s of volume %s needs manual cleanup after %v: %v", sname, ovname, err, derr)
		}
	}
	return err
}

// CloneOpts configures CloneVolume.
type CloneOpts struct {
	SnapshotID *string
	SizeStr    string
	Sparse     bool
}

// CloneVolume clones srcID into cloneID. When SnapshotID is set, the
// clone is made from that snapshot's physical parent; otherwise an
// anonymous snapshot named after the clone is created first.
func (d *Driver) CloneVolume(ctx context.Context, cloneID, srcID string, opts CloneOpts) error {
	cvname := nameid.VName(cloneID)
	ovname := nameid.VName(srcID)

	if opts.SnapshotID != nil {
		sname := nameid.SName(*opts.SnapshotID, nil)
		pname, err := d.graph.FindSnapshotParent(ctx, ovname, sname)
		if err != nil {
			return err
		}
		if pname == "" {
			return errs.New(errs.KindSnapshotNotFound, *opts.SnapshotID, "")
		}
		if err := d.cloneObject(ctx, cvname, sname, pname, false, opts.Sparse, nameid.IsSnapshot(cvname)); err != nil {
			return err
		}
	} else {
		sname := nameid.VName(cloneID)
		if err := d.cloneObject(ctx, cvname, sname, ovname, true, opts.Sparse, nameid.IsSnapshot(cvname)); err != nil {
			return err
		}
	}

	provisioning := "thick"
	if opts.Sparse {
		provisioning = "thin"
	}
	if err := d.api.ModifyVolume(ctx, cvname, map[string]any{"provisioning": provisioning}); err != nil {
		return err
	}

	if opts.SizeStr != "" && sizePattern.MatchString(opts.SizeStr) {
		size, ok := jdssutil.ParseSize(opts.SizeStr)
		if ok {
			if err := d.api.ExtendVolume(ctx, cvname, size); err != nil {
				if derr := d.DeleteVolume(ctx, cloneID, false); derr != nil {
					klog.Warningf("error %v cleaning up failed clone %s", derr, cloneID)
				}
				return err
			}
		}
	}
	return nil
}

// ResizeVolume extends id to size bytes.
func (d *Driver) ResizeVolume(ctx context.Context, id string, size int64) error {
	return d.api.ExtendVolume(ctx, nameid.VName(id), size)
}

// RenameVolume renames id to newID via a modify call.
func (d *Driver) RenameVolume(ctx context.Context, id, newID string) error {
	return d.api.ModifyVolume(ctx, nameid.VName(id), map[string]any{"name": nameid.VName(newID)})
}

func (d *Driver) listSnapshotClones(ctx context.Context, vname, sname string) ([]string, error) {
	snap, err := d.api.GetSnapshot(ctx, vname, sname)
	if err != nil {
		if errs.Is(err, errs.KindSnapshotNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return snapgraph.SplitClones(snap.Clones), nil
}

// DeleteVolume deletes id. With cascade=false a busy volume surfaces the
// appliance's VolumeBusy error unchanged. With cascade=true, a volume
// whose snapshots have live clones surfaces VolumeBusyWithDependents
// naming the clones of its snapshots; otherwise its snapshot mount-point
// clones are recursively removed and deletion is retried.
func (d *Driver) DeleteVolume(ctx context.Context, id string, cascade bool) error {
	vname := nameid.VName(id)
	return d.deleteVolume(ctx, vname, cascade, true)
}

func (d *Driver) deleteVolume(ctx context.Context, vname string, cascade, detachTarget bool) error {
	klog.V(4).Infof("deleting %s", vname)

	if detachTarget {
		if err := d.detachVolume(ctx, vname); err != nil {
			return err
		}
	}

	err := d.api.DeleteVolume(ctx, vname, jdssapi.DeleteVolumeOpts{
		ForceUmount:       true,
		RecursiveChildren: cascade,
	})
	switch {
	case err == nil:
		return nil
	case errs.Is(err, errs.KindVolumeNotFound):
		return nil
	case errs.Is(err, errs.KindVolumeBusy) && !cascade:
		return err
	case errs.Is(err, errs.KindVolumeBusy):
		// fall through to cascade cleanup below
	default:
		klog.V(4).Infof("unable to delete physical volume %s directly: %v", vname, err)
		return nil
	}

	nodes, werr := d.graph.ListAllVolumeSnapshots(ctx, vname)
	if werr != nil {
		if errs.Is(werr, errs.KindVolumeNotFound) {
			return nil
		}
		return werr
	}

	var snaps []jdssapi.Snapshot
	for _, n := range nodes {
		if n.Volume == vname {
			snaps = append(snaps, n.Snapshot)
		}
	}

	bsnaps, _ := d.graph.ListBusySnapshots(ctx, vname, snaps, snapgraph.BusyOpts{ExcludeDedicatedSnapshots: true})
	if len(bsnaps) > 0 {
		var depNames []string
		for _, s := range snaps {
			for _, c := range snapgraph.SplitClones(s.Clones) {
				depNames = append(depNames, nameid.IDName(c))
			}
		}
		return errs.VolumeBusyWithDependents(nameid.IDName(vname), depNames)
	}

	if err := d.cleanVolumeSnapshotMountPoints(ctx, vname, snaps); err != nil {
		return err
	}

	return d.deleteVolume(ctx, vname, cascade, false)
}

func (d *Driver) cleanVolumeSnapshotMountPoints(ctx context.Context, vname string, snaps []jdssapi.Snapshot) error {
	for _, s := range snaps {
		for _, c := range snapgraph.SplitClones(s.Clones) {
			if nameid.IsSnapshot(c) {
				klog.V(4).Infof("delete snapshot mount point %s", c)
				if err := d.deleteVolume(ctx, c, true, true); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// RollbackCheck is the read-only sibling of Rollback: it returns the
// dependency set a rollback would destroy, or nil when rollback is
// currently permissible.
func (d *Driver) RollbackCheck(ctx context.Context, id, snapID string) (*errs.RollbackInfo, error) {
	vname := nameid.VName(id)
	sname := nameid.SName(snapID, nil)

	dep, err := d.api.GetSnapshotRollback(ctx, vname, sname)
	if err != nil {
		return nil, err
	}
	if dep.Snapshots == 0 && dep.Clones == 0 {
		return nil, nil
	}
	return d.buildRollbackInfo(ctx, id, snapID, vname, sname, dep)
}

func (d *Driver) buildRollbackInfo(ctx context.Context, id, snapID, vname, sname string, dep *jdssapi.RollbackInfo) (*errs.RollbackInfo, error) {
	newer, clones, err := d.graph.RollbackDependencies(ctx, vname, sname)
	if err != nil {
		return nil, err
	}

	info := &errs.RollbackInfo{
		Volume:         id,
		Snapshot:       snapID,
		NewerSnapshots: newer,
		Clones:         clones,
		CountSnapshots: dep.Snapshots,
		CountClones:    dep.Clones,
	}
	if len(info.NewerSnapshots) == 0 && dep.Snapshots > 0 {
		info.SnapshotsUnknown = true
	}
	if len(info.Clones) == 0 && dep.Clones > 0 {
		info.ClonesUnknown = true
	}
	return info, nil
}

// RollbackOpts configures Rollback.
type RollbackOpts struct {
	ForceSnapshots bool
}

// Rollback rolls vol back to snap. If the appliance reports no dependent
// snapshots or clones, it proceeds immediately; with ForceSnapshots set
// and zero dependent clones, it proceeds even with dependent snapshots.
// Otherwise it returns RollbackBlocked carrying the dependency set.
func (d *Driver) Rollback(ctx context.Context, id, snapID string, opts RollbackOpts) error {
	vname := nameid.VName(id)
	sname := nameid.SName(snapID, nil)

	dep, err := d.api.GetSnapshotRollback(ctx, vname, sname)
	if err != nil {
		return err
	}

	switch {
	case dep.Snapshots == 0 && dep.Clones == 0:
		klog.Infof("rolling back volume %s to snapshot %s", id, snapID)
		return d.api.Rollback(ctx, vname, sname)
	case opts.ForceSnapshots && dep.Clones == 0:
		return d.api.Rollback(ctx, vname, sname)
	}

	info, err := d.buildRollbackInfo(ctx, id, snapID, vname, sname, dep)
	if err != nil {
		return err
	}
	return errs.RollbackBlocked(info)
}
