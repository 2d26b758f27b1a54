package main

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-streaks/internal/core/services"
)

//go:embed predefined.yaml
var defaultFixture []byte

func seedCmd(flags *globalFlags) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the predefined demo habits",
		Long: `Insert the predefined habit set with its checkoff history. Streaks are
rebuilt by replaying the checkoffs. Nothing is written when predefined
habits already exist.

Examples:
  kansoctl seed
  kansoctl seed --file ./demo.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = bytes.NewReader(defaultFixture)
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open fixture: %w", err)
				}
				defer f.Close()
				r = f
			}

			fixture, err := services.ParseFixture(r)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, log, err := flags.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			defer log.Sync()

			result, err := services.NewSeedService(store, log).Seed(ctx, fixture)
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}

			if result.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "predefined habits already present, nothing to do")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d habit(s) with %d checkoff(s)\n", result.Habits, result.Checkoffs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML fixture to load instead of the built-in set")

	return cmd
}
