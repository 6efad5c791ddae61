package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jdss/jdssctl/pkg/errs"
	"github.com/jdss/jdssctl/pkg/metrics"
	"github.com/jdss/jdssctl/pkg/nameid"
)

func newNASVolumesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nas_volumes",
		Short: "NAS volume collection operations",
	}
	cmd.AddCommand(newNASVolumesCreateCmd())
	cmd.AddCommand(newNASVolumesListCmd())
	return cmd
}

func newNASVolumesCreateCmd() *cobra.Command {
	var id, quota, reservation string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a NAS volume (dataset)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			timer := metrics.NewOperationTimer(metrics.OpNASVolumeCreate)
			if err := a.drv.CreateNASVolume(cmd.Context(), id, quota, reservation); err != nil {
				timer.ObserveError()
				return err
			}
			timer.ObserveSuccess()
			return nil
		},
	}
	cmd.Flags().StringVarP(&id, "name", "n", "", "NAS volume id")
	cmd.Flags().StringVarP(&quota, "quota", "q", "", "dataset quota, e.g. 10G")
	cmd.Flags().StringVarP(&reservation, "reservation", "r", "", "dataset reservation")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("quota")
	return cmd
}

func newNASVolumesListCmd() *cobra.Command {
	var vmid string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List NAS volumes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			volumes, err := a.drv.ListNASVolumes(cmd.Context())
			if err != nil {
				return err
			}

			var plainRows [][]any
			var tableRows []table.Row
			for _, v := range volumes {
				if !nameid.IsVolume(v.Name) {
					continue
				}
				id := nameid.IDName(v.Name)
				if vmid != "" && !volumeMatchesVMID(id, vmid) {
					continue
				}
				plainRows = append(plainRows, []any{id, v.Quota})
				tableRows = append(tableRows, table.Row{id, v.Quota, v.Reservation, v.Mountpoint})
			}
			return printList(a.out, "", "%s %s", plainRows, table.Row{"id", "quota", "reservation", "mountpoint"}, tableRows, volumes)
		},
	}
	cmd.Flags().StringVar(&vmid, "vmid", "", "filter to NAS volumes whose id is scoped to this VM id")
	return cmd
}

func newNASVolumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nas_volume",
		Short: "Single NAS volume operations",
	}
	cmd.AddCommand(newNASVolumeGetCmd())
	cmd.AddCommand(newNASVolumeSnapshotCmd())
	cmd.AddCommand(newNASVolumeSnapshotsCmd())
	return cmd
}

func newNASVolumeGetCmd() *cobra.Command {
	var onlyQuota bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a NAS volume record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			v, err := a.api.GetNASVolume(cmd.Context(), nameid.VName(args[0]))
			if err != nil {
				return err
			}
			if onlyQuota {
				fmt.Println(v.Quota)
				return nil
			}
			return printList(a.out, "", "%s %s", [][]any{{nameid.IDName(v.Name), v.Quota}}, nil, nil, v)
		},
	}
	cmd.Flags().BoolVarP(&onlyQuota, "size", "s", false, "print only the dataset quota")
	return cmd
}

func newNASVolumeSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot <id> <snapshot>",
		Short: "Operate on a single NAS snapshot",
	}
	cmd.AddCommand(newNASVolumeSnapshotDeleteCmd())
	cmd.AddCommand(newNASVolumeSnapshotGetCmd())
	cmd.AddCommand(newNASVolumeSnapshotClonesCmd())
	return cmd
}

func newNASVolumeSnapshotDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "delete <id> <snapshot>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			vname := nameid.VName(args[0])
			sname := nameid.SName(args[1], nil)
			err := a.api.DeleteNASSnapshot(cmd.Context(), vname, sname)
			if errs.Is(err, errs.KindSnapshotNotFound) {
				return nil
			}
			return err
		},
	}
	return cmd
}

func newNASVolumeSnapshotGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "get <id> <snapshot>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			vname := nameid.VName(args[0])
			sname := nameid.SName(args[1], nil)
			s, err := a.api.GetNASSnapshot(cmd.Context(), vname, sname)
			if err != nil {
				return err
			}
			return printList(a.out, "", "%s %s", [][]any{{nameid.SIDFromSName(s.Name), s.Creation}}, nil, nil, s)
		},
	}
	return cmd
}

func newNASVolumeSnapshotClonesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clones <id> <snapshot>",
		Short: "Plain writable dataset clones of a NAS snapshot (no share attached)",
	}
	cmd.AddCommand(newNASVolumeSnapshotClonesCreateCmd())
	cmd.AddCommand(newNASVolumeSnapshotClonesDeleteCmd())
	cmd.AddCommand(newNASVolumeSnapshotClonesListCmd())
	return cmd
}

func newNASVolumeSnapshotClonesCreateCmd() *cobra.Command {
	var cloneName string
	cmd := &cobra.Command{
		Use:  "create <id> <snapshot>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			vname := nameid.VName(args[0])
			sname := nameid.SName(args[1], nil)
			cname := nameid.VName(cloneName)
			err := a.api.CreateNASClone(cmd.Context(), vname, sname, cname)
			if errs.Is(err, errs.KindDatasetExists) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&cloneName, "name", "n", "", "clone dataset id")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newNASVolumeSnapshotClonesDeleteCmd() *cobra.Command {
	var cloneName string
	cmd := &cobra.Command{
		Use:  "delete <id> <snapshot>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			cname := nameid.VName(cloneName)
			err := a.api.DeleteNASClone(cmd.Context(), cname)
			if errs.Is(err, errs.KindDatasetExists) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&cloneName, "name", "n", "", "clone dataset id")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newNASVolumeSnapshotClonesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "list <id> <snapshot>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			vname := nameid.VName(args[0])
			sname := nameid.SName(args[1], nil)
			clones, err := a.api.ListNASClones(cmd.Context(), vname+"@"+sname)
			if err != nil {
				return err
			}
			var plainRows [][]any
			for _, c := range clones {
				plainRows = append(plainRows, []any{nameid.IDName(c)})
			}
			return printList(a.out, "", "%s", plainRows, table.Row{"id"}, nil, clones)
		},
	}
	return cmd
}

func newNASVolumeSnapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots <id>",
		Short: "Operate on a NAS volume's snapshot collection",
	}
	cmd.AddCommand(newNASVolumeSnapshotsCreateCmd())
	cmd.AddCommand(newNASVolumeSnapshotsListCmd())
	return cmd
}

func newNASVolumeSnapshotsCreateCmd() *cobra.Command {
	var ignoreExists bool
	var proxmoxVolume string
	cmd := &cobra.Command{
		Use:  "create <id> <snapshot>",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			vname := nameid.VName(args[0])
			var sname string
			if proxmoxVolume != "" {
				sname = nameid.SName(args[1], &proxmoxVolume)
			} else {
				sname = nameid.SName(args[1], nil)
			}
			err := a.api.CreateNASSnapshot(cmd.Context(), vname, sname)
			if ignoreExists && errs.Is(err, errs.KindSnapshotExists) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&ignoreExists, "ignoreexists", false, "treat an already-existing snapshot as success")
	cmd.Flags().StringVar(&proxmoxVolume, "proxmox-volume", "", "tag the snapshot's physical name with this originating volume id")
	return cmd
}

func newNASVolumeSnapshotsListCmd() *cobra.Command {
	var withClones bool
	cmd := &cobra.Command{
		Use:  "list <id>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			vname := nameid.VName(args[0])
			snaps, err := a.api.ListNASSnapshots(cmd.Context(), vname)
			if err != nil {
				return err
			}

			var plainRows [][]any
			var tableRows []table.Row
			for _, s := range snaps {
				id := nameid.SIDFromSName(s.Name)
				row := []any{id}
				trow := table.Row{id}
				if withClones {
					clones := strings.Join(splitCloneNames(s.Clones), ",")
					row = append(row, clones)
					trow = append(trow, clones)
				}
				plainRows = append(plainRows, row)
				tableRows = append(tableRows, trow)
			}
			header := table.Row{"id"}
			if withClones {
				header = append(header, "clones")
			}
			return printList(a.out, "", plainRowFmt(len(header)), plainRows, header, tableRows, snaps)
		},
	}
	cmd.Flags().BoolVar(&withClones, "with-clones", false, "include each snapshot's dependent clone ids")
	return cmd
}

func splitCloneNames(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, nameid.IDName(p))
	}
	return out
}
