package main

import (
	"fmt"
	"strconv"

	"github.com/moby/ifset/registry"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	addCmd = &cobra.Command{
		Use:   "add <name>...",
		Short: "Add interfaces to the managed set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			for _, name := range args {
				if err := c.Add(name); err != nil {
					return err
				}
			}
			return nil
		},
	}

	rmCmd = &cobra.Command{
		Use:     "rm <name>...",
		Aliases: []string{"remove"},
		Short:   "Remove interfaces from the managed set",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			for _, name := range args {
				if err := c.Delete(name); err != nil {
					return err
				}
			}
			return nil
		},
	}

	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove every interface from the managed set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dial(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Clear()
		},
	}

	listCmd = &cobra.Command{
		Use:   "ls",
		Short: "List managed interfaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, err := cmd.Flags().GetBool("quiet")
			if err != nil {
				return err
			}

			c, err := dial(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			rows, err := c.List()
			if err != nil {
				return err
			}
			if quiet {
				for _, row := range rows {
					fmt.Fprintln(cmd.OutOrStdout(), row.Name)
				}
				return nil
			}
			return registry.WriteTable(cmd.OutOrStdout(), rows)
		},
	}

	lookupCmd = &cobra.Command{
		Use:   "lookup <ifindex>",
		Short: "Report whether an interface index belongs to a managed interface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ifindex, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Errorf("invalid interface index %q", args[0])
			}

			c, err := dial(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			ok, err := c.Lookup(ifindex)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
)

func init() {
	listCmd.Flags().BoolP("quiet", "q", false, "Only display interface names")
}
