package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/mastofeed/internal/config"
)

func (c *cli) generateConfigCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "generate-config",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = c.configPath
			}
			if path == "" {
				path = config.DefaultPath()
			}
			if err := config.GenerateDefaultConfig(path); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Destination (defaults to --config or ~/.config/mastofeed/config.toml)")
	return cmd
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mastofeed %s\n", Version)
			fmt.Fprintln(out, "Mastodon feed renderer")
			fmt.Fprintln(out, "github.com/pders01/mastofeed")
		},
	}
}
