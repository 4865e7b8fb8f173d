package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/comanda/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"sessions"},
	Short:   "Inspect and operate on persisted conversations",
	Long: `Operator actions on the configured session store. Useful with the redis,
sqlite and file stores; the memory store only lives inside a running process.`,
}

var sessionListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List conversation keys",
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *cli.App, args []string) error {
		keys, err := app.Sessions.List(ctx)
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), k)
		}
		return nil
	}),
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <key>",
	Short: "Print a conversation as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *cli.App, args []string) error {
		sess, err := app.Engine.Session(ctx, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	}),
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <key>",
	Short: "Reset a conversation, cancelling its timers",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *cli.App, args []string) error {
		if err := app.Engine.Reset(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %s reset.\n", args[0])
		return nil
	}),
}

var sessionPauseCmd = &cobra.Command{
	Use:   "pause <key>",
	Short: "Hand a conversation over to a human operator",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *cli.App, args []string) error {
		return app.Engine.Pause(ctx, args[0])
	}),
}

var sessionResolveCmd = &cobra.Command{
	Use:   "resolve <key>",
	Short: "Give a paused conversation back to the bot",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, app *cli.App, args []string) error {
		return app.Engine.ResolveHandover(ctx, args[0])
	}),
}

// withApp builds the application around fn and closes it afterwards.
func withApp(fn func(context.Context, *cobra.Command, *cli.App, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := buildApp(ctx, cli.BuildOptions{})
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = app.Close(closeCtx)
		}()
		return fn(ctx, cmd, app, args)
	}
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionInspectCmd, sessionRmCmd, sessionPauseCmd, sessionResolveCmd)
}
