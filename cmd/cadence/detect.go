package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cadence/internal/cli"
	"github.com/Veraticus/cadence/internal/common"
	"github.com/Veraticus/cadence/internal/engine"
	"github.com/Veraticus/cadence/internal/lifecycle"
)

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect recurring charges and save them as patterns",
		Long: `Scan recent transactions for merchants that bill on a regular cadence and
record each one as a recurring pattern. Re-running is safe: patterns are
updated in place.

With lifecycle.auto_promote enabled, confident patterns are also promoted
to tracked subscriptions.`,
		Args: cobra.NoArgs,
		RunE: runDetect,
	}
	addUserFlag(cmd)
	cmd.Flags().Bool("all", false, "Run for every user in the database")
	return cmd
}

func runDetect(cmd *cobra.Command, _ []string) error {
	all, _ := cmd.Flags().GetBool("all")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng := engine.NewWithConfig(store, store, appConfig.EngineOptions())
	manager, err := newManager(store)
	if err != nil {
		return err
	}

	if !all {
		userID, err := requireUser(cmd)
		if err != nil {
			return err
		}
		summary, err := eng.Run(ctx, userID)
		if err != nil {
			return common.NewUserError("detection failed for "+userID, err)
		}
		if err := cli.RenderDetectionSummary(out, summary); err != nil {
			return err
		}
		return syncSubscriptions(cmd, manager, userID)
	}

	users, err := store.GetUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) == 0 {
		fmt.Fprintln(out, cli.FormatWarning("No transactions imported yet"))
		return nil
	}

	progress := cli.NewBatchProgress(cmd.ErrOrStderr(), len(users), "Detecting recurring charges...")
	results, runErr := eng.RunUsers(ctx, users, func(engine.UserResult) {
		progress.Increment()
	})
	progress.Finish()

	for _, result := range results {
		if result.Err != nil {
			fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("%s: %v", result.UserID, result.Err)))
			continue
		}
		if err := cli.RenderDetectionSummary(out, result.Summary); err != nil {
			return err
		}
		if err := syncSubscriptions(cmd, manager, result.UserID); err != nil {
			return err
		}
	}

	return runErr
}

// syncSubscriptions refreshes tracked subscriptions after a detection run.
func syncSubscriptions(cmd *cobra.Command, manager *lifecycle.Manager, userID string) error {
	result, err := manager.Sync(cmd.Context(), userID)
	if err != nil {
		return fmt.Errorf("failed to sync subscriptions for %s: %w", userID, err)
	}
	if result.Promoted > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Promoted %d new subscriptions", result.Promoted)))
	}
	return nil
}
