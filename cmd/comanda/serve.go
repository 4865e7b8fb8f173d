package main

import (
	"context"

	"github.com/aretw0/comanda/internal/cli"
	"github.com/aretw0/comanda/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook and operator HTTP server",
	Long: `Starts the engine behind an HTTP API: the gateway webhook, operator actions
on sessions, flow management, manual order import and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		app, err := buildApp(sigCtx, cli.BuildOptions{})
		if err != nil {
			return err
		}
		if tui.IsTerminal() {
			tui.PrintBanner(cmd.OutOrStdout(), Version)
		}

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			go cli.WatchFlows(sigCtx, cfg.Flows.Dir, 0, logger, func(ctx context.Context) {
				if n, err := app.ReloadFlows(ctx); err != nil {
					logger.Error("Flow reload failed", "err", err)
				} else {
					logger.Info("Flows reloaded", "count", n)
				}
			})
		}

		return cli.Serve(sigCtx, app, cfg.HTTP.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload flows when their files change")
}
