package main

import (
	"context"
	"fmt"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [schema]",
	Short: "Export the parameter dependency graph",
	Long: `Outputs a Mermaid diagram (graph TD) of the parameters and the conditions
linking them. With --overlay, hidden, disabled and invalid parameters of the
default instance are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := options(cmd, args)
		withOverlay, _ := cmd.Flags().GetBool("overlay")

		eng, err := cli.CreateEngine(opts, cli.NewLogger(opts.Debug))
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if withOverlay {
			inst := eng.NewInstance()
			defer inst.Close()
			_ = inst.ValidateAll(context.Background())

			overlay = &graph.Overlay{}
			for _, k := range eng.Schema().Keys() {
				if !inst.IsVisible(k) {
					overlay.Hidden = append(overlay.Hidden, k)
				}
				if !inst.IsEnabled(k) {
					overlay.Disabled = append(overlay.Disabled, k)
				}
				if !inst.IsValid(k) {
					overlay.Invalid = append(overlay.Invalid, k)
				}
			}
		}

		fmt.Print(graph.GenerateMermaid(eng.Schema(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("overlay", false, "Highlight the state of the default instance")
}
