package main

import (
	"fmt"

	"github.com/aretw0/comanda/internal/cli"
	"github.com/aretw0/comanda/internal/presentation/graph"
	"github.com/aretw0/comanda/pkg/adapters/file"
	flowgraph "github.com/aretw0/comanda/pkg/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <flow-id>",
	Short: "Export a flow as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of the flow. With --session, the nodes
the conversation visited and its current node are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := file.LoadDir(cfg.Flows.Dir)
		if err != nil {
			return err
		}
		flow, err := repo.GetFlow(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("flow %s: %w", args[0], err)
		}
		g, err := flowgraph.New(flow)
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if key, _ := cmd.Flags().GetString("session"); key != "" {
			app, err := buildApp(cmd.Context(), cli.BuildOptions{})
			if err != nil {
				return err
			}
			defer app.Close(cmd.Context())
			sess, err := app.Engine.Session(cmd.Context(), key)
			if err != nil {
				return err
			}
			overlay = &graph.GraphOverlay{CurrentNode: sess.NodeID}
			for _, h := range sess.History {
				if h.NodeID != "" {
					overlay.VisitedNodes = append(overlay.VisitedNodes, h.NodeID)
				}
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(flow, g.Entry(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the path of this conversation")
}
