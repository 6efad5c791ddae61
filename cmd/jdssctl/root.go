package main

import (
	"context"
	"flag"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/jdss/jdssctl/pkg/driver"
	"github.com/jdss/jdssctl/pkg/jdssapi"
	"github.com/jdss/jdssctl/pkg/jdssconfig"
	"github.com/jdss/jdssctl/pkg/transport"
)

// app bundles the objects every subcommand needs, built once in the root
// command's PersistentPreRunE and threaded through cmd.Context().
type app struct {
	cfg jdssconfig.Config
	api *jdssapi.API
	drv *driver.Driver
	out string
}

type appContextKey struct{}

func appFromContext(ctx context.Context) *app {
	a, _ := ctx.Value(appContextKey{}).(*app)
	return a
}

// rootFlags holds the persistent flag destinations shared by every
// subcommand.
type rootFlags struct {
	configPath    string
	pool          string
	sanHosts      []string
	sanPort       int
	protocol      string
	login         string
	password      string
	skipTLSVerify bool
	output        string
	debug         bool
	metricsAddr   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	var metricsSrv *http.Server

	root := &cobra.Command{
		Use:           "jdssctl",
		Short:         "Control-plane client for a ZFS-backed storage appliance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			values, err := loadConfigFile(flags.configPath)
			if err != nil {
				return err
			}
			values = applyOverrides(values, map[string]string{
				jdssconfig.KeyPool:         flags.pool,
				jdssconfig.KeyRESTProtocol: flags.protocol,
				jdssconfig.KeySanLogin:     flags.login,
				jdssconfig.KeySanPassword:  flags.password,
			})
			if len(flags.sanHosts) > 0 {
				hosts := ""
				for i, h := range flags.sanHosts {
					if i > 0 {
						hosts += ","
					}
					hosts += h
				}
				values[jdssconfig.KeySanHosts] = hosts
			}
			if flags.sanPort != 0 {
				values[jdssconfig.KeySanAPIPort] = strconv.Itoa(flags.sanPort)
			}
			if flags.skipTLSVerify {
				values[jdssconfig.KeySkipTLSVerify] = "true"
			}

			cfg := newConfig(values)
			if cfg.Pool() == "" {
				return errMissingPool
			}

			t := transport.New(transport.Config{
				Hosts:         cfg.SanHosts(),
				Port:          cfg.Int(jdssconfig.KeySanAPIPort, jdssconfig.DefaultSanAPIPort),
				Protocol:      cfg.String(jdssconfig.KeyRESTProtocol, jdssconfig.DefaultRESTProtocol),
				Login:         cfg.String(jdssconfig.KeySanLogin, ""),
				Password:      cfg.String(jdssconfig.KeySanPassword, ""),
				Pool:          cfg.Pool(),
				SkipTLSVerify: cfg.Bool(jdssconfig.KeySkipTLSVerify, false),
			})
			api := jdssapi.New(t)

			a := &app{cfg: cfg, api: api, drv: driver.New(api, cfg), out: flags.output}
			cmd.SetContext(context.WithValue(cmd.Context(), appContextKey{}, a))

			if flags.metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				metricsSrv = &http.Server{Addr: flags.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						klog.Errorf("metrics server error: %v", err)
					}
				}()
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if metricsSrv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return metricsSrv.Shutdown(ctx)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML file of recognized configuration options")
	root.PersistentFlags().StringVar(&flags.pool, "pool", "", "pool name (overrides jovian_pool)")
	root.PersistentFlags().StringSliceVar(&flags.sanHosts, "san-host", nil, "appliance endpoint host (repeatable, overrides san_hosts)")
	root.PersistentFlags().IntVar(&flags.sanPort, "san-port", 0, "appliance REST port (overrides san_api_port)")
	root.PersistentFlags().StringVar(&flags.protocol, "protocol", "", "http or https (overrides jovian_rest_protocol)")
	root.PersistentFlags().StringVar(&flags.login, "login", "", "appliance basic-auth login (overrides san_login)")
	root.PersistentFlags().StringVar(&flags.password, "password", "", "appliance basic-auth password (overrides san_password)")
	root.PersistentFlags().BoolVar(&flags.skipTLSVerify, "insecure-skip-tls-verify", false, "skip TLS certificate verification")
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", "", "additional rendering for list commands: table, json, yaml")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging (equivalent to -v=4)")
	root.PersistentFlags().StringVar(&flags.metricsAddr, "metrics-addr", "", "address to expose Prometheus metrics on, e.g. :9090")

	root.AddCommand(newPoolCmd())
	root.AddCommand(newVolumesCmd())
	root.AddCommand(newVolumeCmd())
	root.AddCommand(newTargetsCmd())
	root.AddCommand(newNASVolumesCmd())
	root.AddCommand(newNASVolumeCmd())
	root.AddCommand(newSharesCmd())
	root.AddCommand(newShareCmd())

	cobra.OnInitialize(func() {
		if flags.debug {
			_ = flag.Set("v", "4")
		}
	})

	return root
}
