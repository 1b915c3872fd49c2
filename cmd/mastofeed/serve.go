package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pders01/mastofeed/internal/debuglog"
	"github.com/pders01/mastofeed/internal/server"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	var (
		address string
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve feeds, the account lookup API and admin endpoints over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if address != "" {
				c.cfg.Server.Address = address
			}

			a, err := c.wire()
			if err != nil {
				return err
			}

			srv := server.New(&server.Config{
				Pipeline:     a.pipeline,
				Renderer:     a.renderer,
				Settings:     a.settings,
				Cache:        a.feed,
				Lookup:       a.client,
				Metrics:      a.metrics,
				Gatherer:     a.registry,
				AdminToken:   c.cfg.Server.AdminToken,
				AllowOrigins: c.cfg.Server.AllowOrigins,
			})

			if !quiet {
				showBanner(cmd, c.cfg.Server.Address)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Listen(c.cfg.Server.Address)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			debuglog.Infof("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("shutting down server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "addr", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Skip startup banner")
	return cmd
}

func showBanner(cmd *cobra.Command, address string) {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Render("mastofeed " + Version)

	detail := lipgloss.NewStyle().
		Foreground(mutedColor).
		Render("listening on " + address)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, detail))

	fmt.Fprintln(cmd.OutOrStdout(), box)
}
