package main

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func (c *cli) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the stored display settings",
	}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.wire()
			if err != nil {
				return err
			}
			s, err := a.settings.Get()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			data, err := toml.Marshal(s)
			if err != nil {
				return fmt.Errorf("encoding settings: %w", err)
			}
			_, err = out.Write(data)
			return err
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "Print as JSON instead of TOML")

	set := &cobra.Command{
		Use:     "set <json>",
		Short:   "Apply a partial JSON document over the stored settings",
		Example: `  mastofeed settings set '{"limit": 5, "style": {"accent_color": "#ff0000"}}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.wire()
			if err != nil {
				return err
			}
			if _, err := a.settings.Update([]byte(args[0])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings saved")
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore every setting to its default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.wire()
			if err != nil {
				return err
			}
			if _, err := a.settings.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings reset to defaults")
			return nil
		},
	}

	cmd.AddCommand(show, set, reset)
	return cmd
}
