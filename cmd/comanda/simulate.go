package main

import (
	"context"
	"os"

	"github.com/aretw0/comanda/internal/cli"
	"github.com/aretw0/comanda/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:     "simulate",
	Aliases: []string{"chat"},
	Short:   "Chat with the flows from the terminal",
	Long: `Runs the engine locally and lets you play the customer. Bot messages are
printed as they would be delivered; timers run in real time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		interactive := tui.IsTerminal()
		render := tui.NewRenderer()
		app, err := buildApp(sigCtx, cli.BuildOptions{
			Sender: cli.NewConsoleSender(cmd.OutOrStdout(), render),
		})
		if err != nil {
			return err
		}
		defer app.Close(context.Background())

		if interactive {
			tui.PrintBanner(cmd.OutOrStdout(), Version)
		}
		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			go cli.WatchFlows(sigCtx, cfg.Flows.Dir, 0, logger, func(ctx context.Context) {
				if _, err := app.ReloadFlows(ctx); err != nil {
					logger.Error("Flow reload failed", "err", err)
				}
			})
		}

		phone, _ := cmd.Flags().GetString("phone")
		return cli.Simulate(sigCtx, app, cli.SimulateOptions{
			Phone:  phone,
			In:     os.Stdin,
			Out:    cmd.OutOrStdout(),
			Prompt: interactive,
		})
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().String("phone", "5490000000000", "Phone number of the simulated customer")
	simulateCmd.Flags().BoolP("watch", "w", false, "Reload flows when their files change")
}
