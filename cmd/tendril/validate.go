package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [schema]",
	Short: "Check the schema and its defaults",
	Long: `Loads the schema, builds an instance from the defaults and runs every
validator, including the cross-validation rules. Reports each failing field.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := options(cmd, args)
		eng, err := cli.CreateEngine(opts, cli.NewLogger(opts.Debug))
		if err != nil {
			return err
		}

		inst := eng.NewInstance()
		defer inst.Close()

		if err := inst.ValidateAll(context.Background()); err != nil {
			fields := domain.FieldErrors(err)
			if len(fields) == 0 {
				return err
			}
			for _, fe := range fields {
				fmt.Fprintf(os.Stderr, "  %s [%s]: %s\n", fe.Key, fe.Code, fe.Message)
			}
			return fmt.Errorf("validation failed: %d error(s)", len(fields))
		}
		fmt.Printf("Schema is valid! %d parameter(s) ✅\n", eng.Schema().Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
