package main

import (
	"fmt"
	"os"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tendril",
	Short: "Tendril is a reactive parameter runtime",
	Long: `Tendril holds typed, validated parameter values declared in Markdown, YAML
or JSON, and keeps visibility, enablement and subscribers in sync with them.`,
	SilenceUsage: true,
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
	rootCmd.PersistentFlags().String("schema", ".", "Schema directory (one document per parameter) or schema file")
	rootCmd.PersistentFlags().String("rules", "", "Lua cross-validation script (default: rules.lua next to the schema)")
	rootCmd.PersistentFlags().String("store", "", "Snapshot store: file:<dir>, sqlite:<path> or redis://host:port/db")
	rootCmd.PersistentFlags().StringSlice("mask", nil, "Mask values of keys containing these substrings before saving")
	rootCmd.PersistentFlags().Bool("debug", false, "Log runtime events to stderr")
}

// options reads the persistent flags. A positional argument overrides
// --schema when the flag was not set.
func options(cmd *cobra.Command, args []string) cli.Options {
	schemaPath, _ := cmd.Flags().GetString("schema")
	if !cmd.Flags().Changed("schema") && len(args) > 0 {
		schemaPath = args[0]
	}
	rules, _ := cmd.Flags().GetString("rules")
	store, _ := cmd.Flags().GetString("store")
	mask, _ := cmd.Flags().GetStringSlice("mask")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.Options{
		SchemaPath:    schemaPath,
		RulesPath:     rules,
		Store:         store,
		EncryptionKey: os.Getenv(cli.EncryptionKeyEnv),
		Mask:          mask,
		Debug:         debug,
	}
}
