package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jdss/jdssctl/pkg/driver"
	"github.com/jdss/jdssctl/pkg/metrics"
)

func newTargetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "iSCSI target operations",
	}
	cmd.AddCommand(newTargetsCreateCmd())
	cmd.AddCommand(newTargetsDeleteCmd())
	cmd.AddCommand(newTargetsGetCmd())
	cmd.AddCommand(newTargetsListCmd())
	return cmd
}

func newTargetsCreateCmd() *cobra.Command {
	var volume, targetPrefix, targetGroup, snapshot, chapUser string
	var lunsPerTarget int
	var onlyHost, onlyLun, direct bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Attach a volume to an iSCSI target, creating one if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())

			var providerAuth string
			if chapUser != "" {
				password, err := driver.GenerateCHAPPassword(a.cfg.CHAPPasswordLen())
				if err != nil {
					return err
				}
				providerAuth = "CHAP " + chapUser + " " + password
			}

			timer := metrics.NewOperationTimer(metrics.OpTargetAcquire)
			var pub *driver.Publication
			var err error
			if snapshot != "" {
				pub, err = a.drv.PublishSnapshotAsLUN(cmd.Context(), volume, snapshot, driver.PublishSnapshotOpts{
					TargetPrefix:  targetPrefix,
					TargetGroup:   targetGroup,
					ProviderAuth:  providerAuth,
					LunsPerTarget: lunsPerTarget,
					Sparse:        a.cfg.ThinProvision(),
				})
			} else {
				pub, err = a.drv.EnsureTargetVolume(cmd.Context(), targetPrefix, targetGroup, volume, driver.EnsureTargetVolumeOpts{
					ProviderAuth:  providerAuth,
					LunsPerTarget: lunsPerTarget,
				})
			}
			if err != nil {
				timer.ObserveError()
				return err
			}
			timer.ObserveSuccess()

			switch {
			case onlyHost:
				fmt.Println(pub.Target)
			case onlyLun:
				fmt.Println(pub.Lun)
			default:
				fmt.Printf("%s %d %s\n", pub.Target, pub.Lun, strings.Join(pub.VIPs, " "))
				if pub.Username != "" {
					fmt.Printf("%s %s\n", pub.Username, pub.Password)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&volume, "volume", "v", "", "volume id to attach")
	cmd.Flags().StringVar(&targetPrefix, "target-prefix", "", "IQN prefix")
	cmd.Flags().StringVar(&targetGroup, "target-group-name", "", "target group name")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "export this snapshot read-only instead of the live volume")
	cmd.Flags().IntVar(&lunsPerTarget, "luns-per-target", 0, "override the configured LUN bound per target")
	cmd.Flags().StringVar(&chapUser, "chap-user", "", "enable CHAP auth for this target under the given username, generating a random password")
	cmd.Flags().BoolVar(&onlyHost, "host", false, "print only the target name")
	cmd.Flags().BoolVar(&onlyLun, "lun", false, "print only the LUN number")
	cmd.Flags().BoolVarP(&direct, "direct", "d", false, "reserved for CLI grammar parity; targets have no name-encoding layer")
	cmd.MarkFlagRequired("volume")
	cmd.MarkFlagRequired("target-prefix")
	cmd.MarkFlagRequired("target-group-name")
	return cmd
}

func newTargetsDeleteCmd() *cobra.Command {
	var volume, targetPrefix, targetGroup, snapshot string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Detach a volume from its iSCSI target, deleting the target if empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			timer := metrics.NewOperationTimer(metrics.OpTargetDetach)
			var err error
			if snapshot != "" {
				err = a.drv.UnpublishSnapshot(cmd.Context(), volume, snapshot, targetPrefix, targetGroup)
			} else {
				err = a.drv.RemoveExport(cmd.Context(), targetPrefix, targetGroup, volume)
			}
			if err != nil {
				timer.ObserveError()
				return err
			}
			timer.ObserveSuccess()
			return nil
		},
	}
	cmd.Flags().StringVarP(&volume, "volume", "v", "", "volume id to detach")
	cmd.Flags().StringVar(&targetPrefix, "target-prefix", "", "IQN prefix")
	cmd.Flags().StringVar(&targetGroup, "target-group-name", "", "target group name")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "detach this snapshot's exported mount clone instead")
	cmd.MarkFlagRequired("volume")
	cmd.MarkFlagRequired("target-prefix")
	cmd.MarkFlagRequired("target-group-name")
	return cmd
}

func newTargetsGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Get a target's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			t, err := a.api.GetTarget(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printList(a.out, "", "%s %v", [][]any{{t.Name, t.Active}}, nil, nil, t)
		},
	}
	return cmd
}

func newTargetsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			targets, err := a.api.ListTargets(cmd.Context())
			if err != nil {
				return err
			}

			var plainRows [][]any
			var tableRows []table.Row
			for _, t := range targets {
				plainRows = append(plainRows, []any{t.Name, t.Active})
				tableRows = append(tableRows, table.Row{t.Name, t.Active, strconv.Itoa(len(t.AllowIP))})
			}
			return printList(a.out, "", "%s %v", plainRows, table.Row{"name", "active", "vips"}, tableRows, targets)
		},
	}
	return cmd
}
