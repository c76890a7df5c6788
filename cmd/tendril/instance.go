package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/spf13/cobra"
)

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Manage saved instances",
	Long:  `List, inspect, and remove instance snapshots held in the --store backend.`,
}

var instanceLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all saved instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		ids, err := backend.Store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing instances: %w", err)
		}
		if len(ids) == 0 {
			fmt.Println("No saved instances found.")
			return nil
		}
		fmt.Println("Saved Instances:")
		for _, id := range ids {
			fmt.Println("- " + id)
		}
		return nil
	},
}

var instanceShowCmd = &cobra.Command{
	Use:   "show <instance-id>",
	Short: "Print the raw snapshot of an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		snap, err := backend.Store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading instance '%s': %w", args[0], err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

var instanceRmCmd = &cobra.Command{
	Use:   "rm <instance-id>...",
	Short: "Remove one or more instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return errors.New("give at least one instance ID, or --all")
		}

		backend, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		if all {
			if args, err = backend.Store.List(cmd.Context()); err != nil {
				return err
			}
		}

		failed := 0
		for _, id := range args {
			if err := backend.Store.Delete(cmd.Context(), id); err != nil {
				fmt.Fprintf(os.Stderr, "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Printf("Removed instance '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d instance(s) could not be removed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(instanceCmd)
	instanceCmd.AddCommand(instanceLsCmd)
	instanceCmd.AddCommand(instanceShowCmd)
	instanceCmd.AddCommand(instanceRmCmd)
	instanceRmCmd.Flags().Bool("all", false, "Remove every saved instance")
}

// openStore opens the --store backend, defaulting to the file store under
// .tendril/instances.
func openStore(cmd *cobra.Command) (*cli.Backend, error) {
	opts := options(cmd, nil)
	if opts.Store == "" {
		opts.Store = "file:" + cli.DefaultFileStore
	}
	return opts.OpenBackend(cmd.Context())
}
