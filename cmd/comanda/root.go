package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/comanda/internal/cli"
	"github.com/aretw0/comanda/internal/config"
	"github.com/spf13/cobra"
)

var (
	v      = config.New()
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "comanda",
	Short: "Comanda runs WhatsApp ordering conversations",
	Long: `Comanda interprets authored conversation flows (menus, questions, catalog
orders, handovers) for WhatsApp customers and persists each conversation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("config")
		if err := config.BindFlags(v, cmd.Flags()); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load(v, file)
		if err != nil {
			return err
		}
		debug, _ := cmd.Flags().GetBool("debug")
		logger = cli.NewLogger(cfg.Log, debug)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("flows", "./flows", "Directory containing flow documents")
	rootCmd.PersistentFlags().String("store", config.StoreMemory, "Session store: memory, file, redis or sqlite")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// buildApp wires the application for commands that run conversations.
func buildApp(ctx context.Context, opts cli.BuildOptions) (*cli.App, error) {
	app, err := cli.Build(ctx, cfg, logger, opts)
	if err != nil {
		return nil, fmt.Errorf("error initializing comanda: %w", err)
	}
	return app, nil
}
