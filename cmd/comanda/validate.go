package main

import (
	"fmt"

	"github.com/aretw0/comanda/internal/validator"
	"github.com/aretw0/comanda/pkg/adapters/file"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check the flows for authoring problems",
	Long: `Compiles every flow document and reports dangling edges, branches without
edges, unreachable nodes, unknown jump targets and triggers claimed twice.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Flows.Dir
		if len(args) > 0 {
			dir = args[0]
		}
		flows, err := file.ReadDir(dir)
		if err != nil {
			return err
		}

		report := validator.ValidateFlows(flows, cfg.Flows.Default)
		out := cmd.OutOrStdout()
		if report.OK() {
			fmt.Fprintf(out, "%d flows are valid! ✅\n", report.Flows)
			return nil
		}
		fmt.Fprint(out, report.String())
		return fmt.Errorf("found %d warnings in %d flows", len(report.Warnings), report.Flows)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
