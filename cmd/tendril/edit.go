package main

import (
	"context"
	"os"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit [schema]",
	Short: "Edit an instance interactively",
	Long: `Opens a console over one instance. Commands are read line by line
("set width 120", "undo", "show", "help"); with --json each line is a JSON
object such as {"op":"set","key":"width","value":120} and each reply is a
JSON line.

With --store the instance is loaded first and saved after every accepted
change.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := options(cmd, args)
		instanceID, _ := cmd.Flags().GetString("instance")
		asJSON, _ := cmd.Flags().GetBool("json")
		readOnly, _ := cmd.Flags().GetBool("read-only")
		protect, _ := cmd.Flags().GetStringSlice("protect")

		logger := cli.NewLogger(opts.Debug)
		eng, err := cli.CreateEngine(opts, logger)
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		backend, err := opts.OpenBackend(ctx)
		if err != nil {
			return err
		}
		defer backend.Close()

		return cli.Edit(ctx, eng, backend, instanceID, os.Stdin, os.Stdout, logger, cli.EditOptions{
			Protect:  protect,
			JSON:     asJSON,
			ReadOnly: readOnly,
		})
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().String("instance", "default", "Instance ID")
	editCmd.Flags().Bool("json", false, "Speak JSON Lines instead of text")
	editCmd.Flags().Bool("read-only", false, "Refuse every change")
	editCmd.Flags().StringSlice("protect", nil, "Keys that cannot be changed")
}
