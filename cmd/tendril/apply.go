package main

import (
	"fmt"
	"os"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply [schema] --set key=value...",
	Short: "Set values and print the resulting state",
	Long: `Sets each --set assignment in order and prints the values, the changes and
any validation errors as YAML. Values are read as YAML ("3", "true", "[a, b]").

With --store the instance is loaded first and saved afterwards, unless a
value was rejected.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := options(cmd, args)
		pairs, _ := cmd.Flags().GetStringArray("set")
		instanceID, _ := cmd.Flags().GetString("instance")

		assignments, err := cli.ParseAssignments(pairs)
		if err != nil {
			return err
		}

		eng, err := cli.CreateEngine(opts, cli.NewLogger(opts.Debug))
		if err != nil {
			return err
		}

		backend, err := opts.OpenBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer backend.Close()

		report, err := cli.Apply(cmd.Context(), eng, backend, instanceID, assignments)
		if err != nil {
			return err
		}
		if err := report.WriteYAML(os.Stdout); err != nil {
			return err
		}
		if len(report.Errors) > 0 {
			return fmt.Errorf("%d value(s) rejected", len(report.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringArray("set", nil, "Assignment key=value (repeatable)")
	applyCmd.Flags().String("instance", "default", "Instance ID used with --store")
}
