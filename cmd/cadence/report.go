package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cadence/internal/cli"
	"github.com/Veraticus/cadence/internal/monthly"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the monthly-equivalent cost of active subscriptions",
		Args:  cobra.NoArgs,
		RunE:  runReport,
	}
	addUserFlag(cmd)
	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	userID, err := requireUser(cmd)
	if err != nil {
		return err
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	subs, err := store.GetSubscriptions(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}
	patterns, err := store.GetRecurringPatterns(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("failed to load patterns: %w", err)
	}

	categories := make(map[string]string, len(patterns))
	for _, p := range patterns {
		categories[p.Merchant] = p.Category
	}

	return cli.RenderReport(cmd.OutOrStdout(), userID, monthly.Aggregate(subs, categories))
}
