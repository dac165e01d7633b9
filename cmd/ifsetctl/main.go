package main

import (
	"os"
	"time"

	"github.com/moby/ifset/config"
	"github.com/moby/ifset/control"
	"github.com/moby/ifset/version"
	"github.com/spf13/cobra"
)

func main() {
	if c, err := mainCmd.ExecuteC(); err != nil {
		c.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

var mainCmd = &cobra.Command{
	Use:           os.Args[0],
	Short:         "Manage the interfaces tracked by ifsetd",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func defaultSocket() string {
	if socket := os.Getenv("IFSET_CONTROL_SOCKET"); socket != "" {
		return socket
	}
	return config.DefaultSocket
}

func dial(cmd *cobra.Command) (*control.Client, error) {
	socket, err := cmd.Flags().GetString("socket")
	if err != nil {
		return nil, err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}
	return control.Dial(socket, timeout)
}

func init() {
	mainCmd.PersistentFlags().StringP("socket", "s", defaultSocket(), "Control socket of ifsetd")
	mainCmd.PersistentFlags().Duration("timeout", 5*time.Second, "Timeout for connecting to ifsetd")

	mainCmd.AddCommand(
		addCmd,
		rmCmd,
		clearCmd,
		listCmd,
		lookupCmd,
		version.Cmd,
	)
}
