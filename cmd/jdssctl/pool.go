package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jdss/jdssctl/pkg/jdssapi"
	"github.com/jdss/jdssctl/pkg/jdssutil"
)

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Pool capacity",
	}
	cmd.AddCommand(newPoolGetCmd())
	return cmd
}

func newPoolGetCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print total/free/used pool capacity in GiB",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFromContext(cmd.Context())

			stats, err := a.api.GetPoolStats(cmd.Context())
			if err != nil {
				return err
			}

			total, ok := jdssutil.ParseSize(stats.Size)
			if !ok {
				total = 0
			}
			avail, ok := jdssutil.ParseSize(stats.Available)
			if !ok {
				avail = 0
			}

			reserved := a.cfg.ReservedPercentage()
			free := avail - (total*int64(reserved))/100
			if free < 0 {
				free = 0
			}
			used := total - free
			if used < 0 {
				used = 0
			}

			fmt.Printf("%d %d %d\n", total>>30, free>>30, used>>30)

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					*jdssapi.PoolStats
					FreeBytes int64 `json:"free_bytes"`
					UsedBytes int64 `json:"used_bytes"`
				}{stats, free, used})
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "additionally emit the full pool record as JSON")
	return cmd
}
