package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jdss/jdssctl/pkg/jdssutil"
	"github.com/jdss/jdssctl/pkg/metrics"
	"github.com/jdss/jdssctl/pkg/nameid"
)

func newSharesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shares",
		Short: "NFS/CIFS share collection operations",
	}
	cmd.AddCommand(newSharesCreateCmd())
	cmd.AddCommand(newSharesListCmd())
	return cmd
}

func newSharesCreateCmd() *cobra.Command {
	var name, quota, reservation string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a synchronous NFS share over a new backing dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			timer := metrics.NewOperationTimer(metrics.OpShareCreate)
			if err := a.drv.CreateShare(cmd.Context(), name, quota, reservation); err != nil {
				timer.ObserveError()
				return err
			}
			timer.ObserveSuccess()
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "share id")
	cmd.Flags().StringVarP(&quota, "quota", "q", "", "backing dataset quota, e.g. 10G")
	cmd.Flags().StringVarP(&reservation, "reservation", "r", "", "backing dataset reservation")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("quota")
	return cmd
}

func newSharesListCmd() *cobra.Command {
	var vmid string
	var withQuota, withPath bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List shares",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			shares, err := a.drv.ListShares(cmd.Context())
			if err != nil {
				return err
			}

			var plainRows [][]any
			var tableRows []table.Row
			for _, s := range shares {
				if vmid != "" && !volumeMatchesVMID(s.Name, vmid) {
					continue
				}
				row := []any{s.Name}
				trow := table.Row{s.Name}
				if withPath {
					row = append(row, s.Path)
					trow = append(trow, s.Path)
				}
				if withQuota {
					quota := ""
					if v, err := a.api.GetNASVolume(cmd.Context(), nameid.VName(s.Name)); err == nil {
						quota = v.Quota
					}
					row = append(row, quota)
					trow = append(trow, quota)
				}
				plainRows = append(plainRows, row)
				tableRows = append(tableRows, trow)
			}
			header := table.Row{"name"}
			if withPath {
				header = append(header, "path")
			}
			if withQuota {
				header = append(header, "quota")
			}
			return printList(a.out, "", plainRowFmt(len(header)), plainRows, header, tableRows, shares)
		},
	}
	cmd.Flags().StringVar(&vmid, "vmid", "", "filter to shares whose id is scoped to this VM id")
	cmd.Flags().BoolVarP(&withQuota, "with-quota", "d", false, "include the backing dataset quota")
	cmd.Flags().BoolVarP(&withPath, "with-path", "p", false, "include the share's export path")
	return cmd
}

func newShareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Single share operations",
	}
	cmd.AddCommand(newShareGetCmd())
	cmd.AddCommand(newShareDeleteCmd())
	cmd.AddCommand(newShareResizeCmd())
	return cmd
}

func newShareGetCmd() *cobra.Command {
	var onlyQuota, onlyPath bool
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Get a share record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			sname := nameid.VName(args[0])
			share, err := a.api.GetShare(cmd.Context(), sname)
			if err != nil {
				return err
			}

			switch {
			case onlyQuota:
				v, err := a.api.GetNASVolume(cmd.Context(), sname)
				if err != nil {
					return err
				}
				fmt.Println(v.Quota)
			case onlyPath:
				fmt.Println(share.RealPath)
			default:
				return printList(a.out, "", "%s %s", [][]any{{nameid.IDName(share.Name), share.Path}}, nil, nil, share)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&onlyQuota, "size", "s", false, "print only the backing dataset quota")
	cmd.Flags().BoolVarP(&onlyPath, "guid", "G", false, "print only the share's real mount path")
	return cmd
}

func newShareDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a share and its backing dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			timer := metrics.NewOperationTimer(metrics.OpShareDelete)
			if err := a.drv.DeleteShare(cmd.Context(), args[0]); err != nil {
				timer.ObserveError()
				return err
			}
			timer.ObserveSuccess()
			return nil
		},
	}
	return cmd
}

func newShareResizeCmd() *cobra.Command {
	var add bool
	cmd := &cobra.Command{
		Use:   "resize <name> <size>",
		Short: "Resize a share's backing dataset quota",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())
			quota := args[1]
			if add {
				v, err := a.api.GetNASVolume(cmd.Context(), nameid.VName(args[0]))
				if err != nil {
					return err
				}
				cur, ok1 := jdssutil.ParseSize(v.Quota)
				delta, ok2 := jdssutil.ParseSize(args[1])
				if ok1 && ok2 {
					quota = fmt.Sprintf("%d", cur+delta)
				}
			}
			return a.drv.ResizeShare(cmd.Context(), args[0], quota)
		},
	}
	cmd.Flags().BoolVar(&add, "add", false, "treat <size> as a delta added to the current quota")
	return cmd
}
