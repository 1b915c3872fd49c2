package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached feeds",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.wire()
			if err != nil {
				return err
			}
			n, err := a.feed.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached feed(s)\n", n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Remove expired cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.wire()
			if err != nil {
				return err
			}
			n, err := a.feed.Purge()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired entr%s\n", n, plural(n, "y", "ies"))
			return nil
		},
	})

	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
