package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/moby/ifset/log"
	"github.com/moby/ifset/version"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := mainCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.L.Fatal(err)
	}
}

var mainCmd = &cobra.Command{
	Use:          os.Args[0],
	Short:        "Run the interface membership registry daemon",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		if err := setupLogging(cfg.Logging); err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	flags := mainCmd.Flags()
	flags.StringP("config", "c", "", "Path to the YAML configuration file")
	flags.StringP("log-level", "l", "info", "Log level (options \"debug\", \"info\", \"warn\", \"error\", \"fatal\", \"panic\")")
	flags.StringP("socket", "s", "", "Control socket path")
	flags.String("listen-metrics-addr", "", "Listen address for the prometheus /metrics endpoint")
	flags.String("watcher", "", "Device watcher (options \"netlink\", \"poll\")")
	flags.Duration("poll-interval", 0, "Interval between device listings when polling")
	flags.Int("max-entries", 0, "Maximum number of managed interfaces")
	flags.Int("buckets", 0, "Size of the interface index hash table, a power of two")
	flags.String("table-file", "", "File rewritten with the interface table after every change")

	mainCmd.AddCommand(version.Cmd)
}
