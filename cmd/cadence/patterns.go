package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cadence/internal/cli"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List detected recurring patterns",
		Args:  cobra.NoArgs,
		RunE:  runPatterns,
	}
	addUserFlag(cmd)
	return cmd
}

func runPatterns(cmd *cobra.Command, _ []string) error {
	userID, err := requireUser(cmd)
	if err != nil {
		return err
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	patterns, err := store.GetRecurringPatterns(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("failed to load patterns: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatTitle("Recurring patterns for "+userID))
	return cli.RenderPatterns(cmd.OutOrStdout(), patterns)
}
