package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/comanda/internal/runtime"
	"github.com/aretw0/comanda/pkg/adapters/file"
	"github.com/aretw0/comanda/pkg/orderparse"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [text]",
	Short: "Parse a free-text order against the catalog",
	Long: `Runs the order parser on the text (or stdin) and prints the matched line
items, useful to tune product names and aliases.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("catalog")
		if path == "" {
			path = cfg.Catalog.File
		}
		if path == "" {
			return fmt.Errorf("no catalog: use --catalog or catalog.file")
		}
		products, err := file.ReadProducts(path)
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		if text == "" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			text = string(data)
		}

		res := orderparse.ParseDetailed(text, products)
		out := cmd.OutOrStdout()
		var total float64
		for _, it := range res.Items {
			fmt.Fprintf(out, "%d x %s (%s) %s\n", it.Quantity, it.Name, it.ProductID, runtime.FormatMoney(it.Subtotal()))
			total += it.Subtotal()
		}
		for _, line := range res.Unmatched {
			fmt.Fprintf(out, "? %s\n", line)
		}
		fmt.Fprintf(out, "Total: %s\n", runtime.FormatMoney(total))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().String("catalog", "", "Catalog file (defaults to catalog.file)")
}
