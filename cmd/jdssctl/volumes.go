package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jdss/jdssctl/pkg/driver"
	"github.com/jdss/jdssctl/pkg/errs"
	"github.com/jdss/jdssctl/pkg/jdssapi"
	"github.com/jdss/jdssctl/pkg/jdssutil"
	"github.com/jdss/jdssctl/pkg/metrics"
	"github.com/jdss/jdssctl/pkg/nameid"
)

func newVolumesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volumes",
		Short: "Volume collection operations",
	}
	cmd.AddCommand(newVolumesCreateCmd())
	cmd.AddCommand(newVolumesListCmd())
	cmd.AddCommand(newVolumesGetFreeNameCmd())
	return cmd
}

func newVolumesCreateCmd() *cobra.Command {
	var id, sizeStr, blockSize string
	var direct bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a volume",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			size, ok := jdssutil.ParseSize(sizeStr)
			if !ok {
				return fmt.Errorf("invalid size %q", sizeStr)
			}
			if blockSize == "" {
				blockSize = a.cfg.BlockSize()
			}
			sparse := a.cfg.ThinProvision()
			timer := metrics.NewOperationTimer(metrics.OpVolumeCreate)

			var err error
			if direct {
				err = a.api.CreateVolume(cmd.Context(), id, jdssapi.CreateVolumeOpts{
					Size: size, Sparse: sparse, BlockSize: blockSize,
				})
			} else {
				err = a.drv.CreateVolume(cmd.Context(), id, size, sparse, blockSize)
			}
			if err != nil {
				timer.ObserveError()
				return err
			}
			timer.ObserveSuccess()
			metrics.SetVolumeCapacity(id, size)
			return nil
		},
	}
	cmd.Flags().StringVarP(&id, "name", "n", "", "volume id")
	cmd.Flags().StringVarP(&sizeStr, "size", "s", "", "volume size, e.g. 10G")
	cmd.Flags().StringVarP(&blockSize, "block", "b", "", "ZFS volblocksize, e.g. 64K")
	cmd.Flags().BoolVarP(&direct, "direct", "d", false, "treat --name as an already-physical appliance name")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("size")
	return cmd
}

func newVolumesListCmd() *cobra.Command {
	var vmid string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List volumes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			volumes, err := a.api.ListVolumes(cmd.Context())
			if err != nil {
				return err
			}

			var plainRows [][]any
			var tableRows []table.Row
			type record struct {
				ID   string `json:"id" yaml:"id"`
				Size int64  `json:"size_bytes" yaml:"size_bytes"`
			}
			var records []record

			for _, v := range volumes {
				if !nameid.IsVolume(v.Name) {
					continue
				}
				id := nameid.IDName(v.Name)
				if vmid != "" && !volumeMatchesVMID(id, vmid) {
					continue
				}
				size, _ := jdssutil.ParseSize(v.VolSize)
				plainRows = append(plainRows, []any{id, size})
				tableRows = append(tableRows, table.Row{id, size, v.VolBlockSize, v.Compression})
				records = append(records, record{ID: id, Size: size})
			}

			return printList(a.out, "", "%s %d", plainRows,
				table.Row{"id", "size", "block size", "compression"}, tableRows, records)
		},
	}
	cmd.Flags().StringVar(&vmid, "vmid", "", "filter to volumes whose id is scoped to this VM id")
	return cmd
}

// volumeMatchesVMID reports whether id belongs to vmid under the
// "vm-<vmid>-disk-N" naming convention the hypervisor integration uses.
func volumeMatchesVMID(id, vmid string) bool {
	prefix := "vm-" + vmid + "-"
	return len(id) > len(prefix) && id[:len(prefix)] == prefix
}

func newVolumesGetFreeNameCmd() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "getfreename",
		Short: "Find the lowest-numbered unused id under a prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			name, err := a.drv.FindFreeName(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "id prefix to search under")
	cmd.MarkFlagRequired("prefix")
	return cmd
}

func newVolumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volume",
		Short: "Single-volume operations",
	}
	cmd.AddCommand(newVolumeGetCmd())
	cmd.AddCommand(newVolumeCloneCmd())
	cmd.AddCommand(newVolumeDeleteCmd())
	cmd.AddCommand(newVolumeRenameCmd())
	cmd.AddCommand(newVolumeResizeCmd())
	cmd.AddCommand(newVolumeSnapshotCmd())
	cmd.AddCommand(newVolumeSnapshotsCmd())
	return cmd
}

func newVolumeGetCmd() *cobra.Command {
	var onlySize, onlyGUID, onlyOrigin, onlyName, direct bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a volume record, or a single field of it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			physical := args[0]
			if !direct {
				physical = nameid.VName(args[0])
			}
			v, err := a.api.GetVolume(cmd.Context(), physical)
			if err != nil {
				return err
			}

			switch {
			case onlySize:
				size, _ := jdssutil.ParseSize(v.VolSize)
				fmt.Println(size)
			case onlyGUID:
				fmt.Println(v.Name)
			case onlyOrigin:
				fmt.Println(nameid.SIDFromSName(v.Origin))
			case onlyName:
				fmt.Println(nameid.IDName(v.Name))
			default:
				id := nameid.IDName(v.Name)
				size, _ := jdssutil.ParseSize(v.VolSize)
				return printList(a.out, "", "%s %d", [][]any{{id, size}}, nil, nil, v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&onlySize, "size", "s", false, "print only the volume size in bytes")
	cmd.Flags().BoolVarP(&onlyGUID, "guid", "G", false, "print only the physical name")
	cmd.Flags().BoolVarP(&onlyOrigin, "origin", "i", false, "print only the originating snapshot id")
	cmd.Flags().BoolVarP(&onlyName, "name-only", "n", false, "print only the external id")
	cmd.Flags().BoolVarP(&direct, "direct", "d", false, "treat <id> as an already-physical appliance name")
	return cmd
}

func newVolumeCloneCmd() *cobra.Command {
	var cloneID, snapshot, sizeStr string
	cmd := &cobra.Command{
		Use:   "clone <id>",
		Short: "Clone a volume, optionally from a named snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			var snapPtr *string
			if snapshot != "" {
				snapPtr = &snapshot
			}
			opts := driver.CloneOpts{SnapshotID: snapPtr, SizeStr: sizeStr, Sparse: a.cfg.ThinProvision()}
			timer := metrics.NewOperationTimer(metrics.OpVolumeClone)
			if err := a.drv.CloneVolume(cmd.Context(), cloneID, args[0], opts); err != nil {
				timer.ObserveError()
				return err
			}
			timer.ObserveSuccess()
			return nil
		},
	}
	cmd.Flags().StringVarP(&cloneID, "name", "n", "", "clone id")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "clone from this existing snapshot instead of an anonymous one")
	cmd.Flags().StringVar(&sizeStr, "size", "", "resize the clone after creation")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newVolumeDeleteCmd() *cobra.Command {
	var cascade, forceUmount bool
	var targetPrefix, targetGroup string
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			if targetPrefix != "" {
				if err := a.drv.RemoveExport(cmd.Context(), targetPrefix, targetGroup, args[0]); err != nil {
					return err
				}
			}
			timer := metrics.NewOperationTimer(metrics.OpVolumeDelete)
			if err := a.drv.DeleteVolume(cmd.Context(), args[0], cascade); err != nil {
				timer.ObserveError()
				return err
			}
			timer.ObserveSuccess()
			metrics.DeleteVolumeCapacity(args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&cascade, "cascade", "c", false, "recursively remove dependent clones first")
	cmd.Flags().BoolVarP(&forceUmount, "force-umount", "p", false, "force-unmount busy datasets before delete (the appliance call always requests this; kept for CLI grammar parity)")
	cmd.Flags().StringVar(&targetPrefix, "target-prefix", "", "also detach from this target prefix's export first")
	cmd.Flags().StringVar(&targetGroup, "target-group-name", "", "target group name to detach from, alongside --target-prefix")
	return cmd
}

func newVolumeRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <id> <new>",
		Short: "Rename a volume",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			timer := metrics.NewOperationTimer(metrics.OpVolumeRename)
			if err := a.drv.RenameVolume(cmd.Context(), args[0], args[1]); err != nil {
				timer.ObserveError()
				return err
			}
			timer.ObserveSuccess()
			return nil
		},
	}
	return cmd
}

func newVolumeResizeCmd() *cobra.Command {
	var add, direct bool
	cmd := &cobra.Command{
		Use:   "resize <id> <size>",
		Short: "Resize a volume",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			size, ok := jdssutil.ParseSize(args[1])
			if !ok {
				return fmt.Errorf("invalid size %q", args[1])
			}
			if add {
				physical := nameid.VName(args[0])
				v, err := a.api.GetVolume(cmd.Context(), physical)
				if err != nil {
					return err
				}
				cur, _ := jdssutil.ParseSize(v.VolSize)
				size += cur
			}
			timer := metrics.NewOperationTimer(metrics.OpVolumeResize)
			var err error
			if direct {
				err = a.api.ExtendVolume(cmd.Context(), args[0], size)
			} else {
				err = a.drv.ResizeVolume(cmd.Context(), args[0], size)
			}
			if err != nil {
				timer.ObserveError()
				return err
			}
			timer.ObserveSuccess()
			metrics.SetVolumeCapacity(args[0], size)
			return nil
		},
	}
	cmd.Flags().BoolVar(&add, "add", false, "treat <size> as a delta added to the current size")
	cmd.Flags().BoolVarP(&direct, "direct", "d", false, "treat <id> as an already-physical appliance name")
	return cmd
}

func newVolumeSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot <id> <snapshot>",
		Short: "Operate on a single snapshot of a volume",
	}
	cmd.AddCommand(newVolumeSnapshotDeleteCmd())
	cmd.AddCommand(newVolumeSnapshotRollbackCmd())
	cmd.AddCommand(newVolumeSnapshotGetCmd())
	return cmd
}

func newVolumeSnapshotDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id> <snapshot>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			timer := metrics.NewOperationTimer(metrics.OpSnapshotDelete)
			if err := a.drv.DeleteSnapshot(cmd.Context(), args[0], args[1]); err != nil {
				timer.ObserveError()
				return err
			}
			timer.ObserveSuccess()
			return nil
		},
	}
	return cmd
}

func newVolumeSnapshotRollbackCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "rollback <id> <snapshot>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			timer := metrics.NewOperationTimer(metrics.OpVolumeRollback)
			if err := a.drv.Rollback(cmd.Context(), args[0], args[1], driver.RollbackOpts{ForceSnapshots: force}); err != nil {
				timer.ObserveError()
				return err
			}
			timer.ObserveSuccess()
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force-snapshots", false, "roll back even with dependent snapshots, as long as no clones depend on them")
	return cmd
}

// newVolumeSnapshotGetCmd implements the rollback-check read path: it
// reports what a rollback to <snapshot> would destroy without performing it.
func newVolumeSnapshotGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id> <snapshot>",
		Short: "Show what a rollback to this snapshot would destroy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			info, err := a.drv.RollbackCheck(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if info == nil {
				fmt.Println("ok")
				return nil
			}
			fmt.Printf("snapshots=%d clones=%d newer=%v clones_named=%v\n",
				info.CountSnapshots, info.CountClones, info.NewerSnapshots, info.Clones)
			return nil
		},
	}
	return cmd
}

func newVolumeSnapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots <id>",
		Short: "Operate on a volume's snapshot collection",
	}
	cmd.AddCommand(newVolumeSnapshotsCreateCmd())
	cmd.AddCommand(newVolumeSnapshotsListCmd())
	return cmd
}

func newVolumeSnapshotsCreateCmd() *cobra.Command {
	var ignoreExists bool
	cmd := &cobra.Command{
		Use:   "create <id> <snapshot>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			timer := metrics.NewOperationTimer(metrics.OpSnapshotCreate)
			err := a.drv.CreateSnapshot(cmd.Context(), args[0], args[1])
			if err != nil {
				if ignoreExists && errs.Is(err, errs.KindSnapshotExists) {
					timer.ObserveSuccess()
					return nil
				}
				timer.ObserveError()
				return err
			}
			timer.ObserveSuccess()
			return nil
		},
	}
	cmd.Flags().BoolVar(&ignoreExists, "ignoreexists", false, "treat an already-existing snapshot as success")
	return cmd
}

func newVolumeSnapshotsListCmd() *cobra.Command {
	var withGUID, withCreation bool
	cmd := &cobra.Command{
		Use:   "list <id>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			vname := nameid.VName(args[0])
			snaps, err := a.api.ListSnapshots(cmd.Context(), vname)
			if err != nil {
				return err
			}

			var plainRows [][]any
			var tableRows []table.Row
			type record struct {
				ID       string `json:"id" yaml:"id"`
				GUID     string `json:"guid,omitempty" yaml:"guid,omitempty"`
				Creation string `json:"creation,omitempty" yaml:"creation,omitempty"`
			}
			var records []record

			for _, s := range snaps {
				id := nameid.SIDFromSName(s.Name)
				row := []any{id}
				trow := table.Row{id}
				rec := record{ID: id}
				if withGUID {
					row = append(row, s.Guid)
					trow = append(trow, s.Guid)
					rec.GUID = s.Guid
				}
				if withCreation {
					row = append(row, s.Creation)
					trow = append(trow, s.Creation)
					rec.Creation = s.Creation
				}
				plainRows = append(plainRows, row)
				tableRows = append(tableRows, trow)
				records = append(records, rec)
			}

			header := table.Row{"id"}
			if withGUID {
				header = append(header, "guid")
			}
			if withCreation {
				header = append(header, "creation")
			}
			return printList(a.out, "", plainRowFmt(len(header)), plainRows, header, tableRows, records)
		},
	}
	cmd.Flags().BoolVar(&withGUID, "guid", false, "include the snapshot's GUID")
	cmd.Flags().BoolVar(&withCreation, "creation", false, "include the creation timestamp")
	return cmd
}

func plainRowFmt(n int) string {
	f := "%s"
	for i := 1; i < n; i++ {
		f += " %s"
	}
	return f
}
