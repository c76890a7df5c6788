package main

import (
	"context"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/pkg/runtime"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [schema]",
	Short: "Show the parameters and their current state",
	Long: `Renders a table of every parameter with its value, visibility, enablement
and validity. With --instance and --store, the saved instance is shown;
otherwise the defaults are. With --watch, the table is redrawn whenever the
schema changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := options(cmd, args)
		plain, _ := cmd.Flags().GetBool("plain")
		watch, _ := cmd.Flags().GetBool("watch")
		instanceID, _ := cmd.Flags().GetString("instance")

		logger := cli.NewLogger(opts.Debug)
		eng, err := cli.CreateEngine(opts, logger)
		if err != nil {
			return err
		}

		if watch {
			ctx := cli.NewSignalContext(context.Background())
			defer ctx.Cancel()
			return cli.Watch(ctx, eng, logger, cli.InspectReport(nil, plain))
		}

		ctx := cmd.Context()
		backend, err := opts.OpenBackend(ctx)
		if err != nil {
			return err
		}
		defer backend.Close()

		if backend == nil || instanceID == "" {
			return cli.InspectReport(nil, plain)(eng)
		}

		sessions := eng.Sessions(backend.SessionOptions()...)
		defer sessions.Close()
		if err := sessions.Load(ctx, instanceID); err != nil {
			return err
		}
		return sessions.WithInstance(ctx, instanceID, func(ctx context.Context, c *runtime.Context) error {
			cli.Render(cli.InspectMarkdown(instanceID, c), plain)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("plain", false, "Print raw Markdown instead of styled output")
	inspectCmd.Flags().BoolP("watch", "w", false, "Redraw whenever the schema changes")
	inspectCmd.Flags().String("instance", "", "Saved instance to show (requires --store)")
}
