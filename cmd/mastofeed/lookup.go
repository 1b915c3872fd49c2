package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pders01/mastofeed/internal/mastodon"
)

func (c *cli) lookupCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "lookup <handle>",
		Short: "Find the account id for a Mastodon handle",
		Long:  "Resolve a handle such as @user@instance.social to the account id and instance used by feeds.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.wire()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.client.Timeout())
			defer cancel()

			info, err := a.client.LookupAccount(ctx, args[0])
			if err != nil {
				var le *mastodon.LookupError
				if errors.As(err, &le) {
					return fmt.Errorf("%s (%s)", le.Message, le.Code)
				}
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			label := lipgloss.NewStyle().Foreground(mutedColor).Width(14)
			value := lipgloss.NewStyle().Bold(true)
			rows := []struct{ k, v string }{
				{"Display name", info.DisplayName},
				{"Account", "@" + info.Acct},
				{"Account ID", info.AccountID},
				{"Instance", info.Instance},
				{"Profile", info.URL},
			}
			for _, r := range rows {
				fmt.Fprintln(out, label.Render(r.k)+value.Render(r.v))
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, lipgloss.NewStyle().Foreground(accentColor).Render(
				fmt.Sprintf(`[mastodon-feed instance="%s" account="%s"]`, info.Instance, info.AccountID)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
