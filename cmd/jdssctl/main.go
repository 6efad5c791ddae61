// Command jdssctl is the control-plane client for a ZFS-backed storage
// appliance: it translates volume, snapshot, target, and NAS/share intents
// into REST calls, exiting with the taxonomy-derived code of any failure.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/spf13/pflag"
	"k8s.io/klog/v2"

	"github.com/jdss/jdssctl/pkg/errs"
)

func main() {
	klog.InitFlags(nil)
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	root := newRootCmd()
	root.SetContext(context.Background())

	if err := root.Execute(); err != nil {
		printDiagnostic(err)
		os.Exit(errs.ExitCode(err))
	}
}
