package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cadence/internal/cli"
	"github.com/Veraticus/cadence/internal/common"
	"github.com/Veraticus/cadence/internal/lifecycle"
	"github.com/Veraticus/cadence/internal/model"
	"github.com/Veraticus/cadence/internal/storage"
)

func subscriptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subs"},
		Short:   "Manage tracked subscriptions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked subscriptions",
		Args:  cobra.NoArgs,
		RunE:  runSubscriptionsList,
	}
	addUserFlag(listCmd)

	promoteCmd := &cobra.Command{
		Use:   "promote [merchant]",
		Short: "Start tracking a detected pattern as a subscription",
		Args:  cobra.ExactArgs(1),
		RunE:  runSubscriptionsPromote,
	}
	addUserFlag(promoteCmd)

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh subscriptions from the latest patterns and rescore zombies",
		Args:  cobra.NoArgs,
		RunE:  runSubscriptionsSync,
	}
	addUserFlag(syncCmd)

	reminderCmd := &cobra.Command{
		Use:   "reminder [id] [on|off]",
		Short: "Enable or disable the cancellation reminder",
		Args:  cobra.ExactArgs(2),
		RunE:  runSubscriptionsReminder,
	}
	reminderCmd.Flags().Int("days", -1, "days before renewal to remind (default: lifecycle.default_reminder_days)")

	usageCmd := &cobra.Command{
		Use:   "usage [id] [0-1]",
		Short: "Record how much a subscription is used",
		Args:  cobra.ExactArgs(2),
		RunE:  runSubscriptionsUsage,
	}

	cmd.AddCommand(listCmd, promoteCmd, syncCmd, reminderCmd, usageCmd,
		transitionCmd("confirm", "Confirm a detected subscription", (*lifecycle.Manager).Confirm),
		transitionCmd("pause", "Pause a subscription", (*lifecycle.Manager).Pause),
		transitionCmd("resume", "Resume a paused subscription", (*lifecycle.Manager).Resume),
		transitionCmd("cancel", "Mark a subscription as cancelled", (*lifecycle.Manager).Cancel),
	)
	return cmd
}

type subscriptionOp func(*lifecycle.Manager, context.Context, string) (*model.CardSubscription, error)

func transitionCmd(name, short string, op subscriptionOp) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, func(manager *lifecycle.Manager) error {
				sub, err := op(manager, cmd.Context(), args[0])
				if err != nil {
					return lifecycleError(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s is now %s", sub.DisplayName(), describe(sub))))
				return nil
			})
		},
	}
}

func withManager(cmd *cobra.Command, fn func(*lifecycle.Manager) error) error {
	return withStorageManager(cmd, func(_ *storage.SQLiteStorage, manager *lifecycle.Manager) error {
		return fn(manager)
	})
}

func describe(sub *model.CardSubscription) string {
	if sub.IsConfirmed && sub.Status == model.StatusActive {
		return "confirmed"
	}
	return string(sub.Status)
}

// lifecycleError turns expected lifecycle failures into user-facing messages.
func lifecycleError(err error) error {
	switch {
	case errors.Is(err, storage.ErrSubscriptionNotFound):
		return common.NewUserError("no subscription with that id", err)
	case errors.Is(err, common.ErrAlreadyCancelled):
		return common.NewUserError("subscription is already cancelled", err)
	case errors.Is(err, common.ErrInvalidTransition):
		return common.NewUserError("that status change is not allowed", err)
	case errors.Is(err, common.ErrInvalidConfig):
		return common.NewUserError("invalid value", err)
	}
	return err
}

func runSubscriptionsList(cmd *cobra.Command, _ []string) error {
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

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatTitle("Subscriptions for "+userID))
	return cli.RenderSubscriptions(cmd.OutOrStdout(), subs)
}

func runSubscriptionsPromote(cmd *cobra.Command, args []string) error {
	userID, err := requireUser(cmd)
	if err != nil {
		return err
	}

	return withStorageManager(cmd, func(store *storage.SQLiteStorage, manager *lifecycle.Manager) error {
		pattern, err := store.GetRecurringPattern(cmd.Context(), userID, args[0])
		if errors.Is(err, storage.ErrPatternNotFound) {
			return common.NewUserError(fmt.Sprintf("no recurring pattern for %q; run 'cadence detect' first", args[0]), err)
		}
		if err != nil {
			return err
		}

		sub, err := manager.Promote(cmd.Context(), *pattern)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Tracking %s as %s", sub.DisplayName(), sub.ID)))
		return nil
	})
}

func withStorageManager(cmd *cobra.Command, fn func(*storage.SQLiteStorage, *lifecycle.Manager) error) error {
	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	manager, err := newManager(store)
	if err != nil {
		return err
	}
	return fn(store, manager)
}

func runSubscriptionsSync(cmd *cobra.Command, _ []string) error {
	userID, err := requireUser(cmd)
	if err != nil {
		return err
	}

	return withManager(cmd, func(manager *lifecycle.Manager) error {
		result, err := manager.Sync(cmd.Context(), userID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
			"Refreshed %d, rescored %d, promoted %d", result.Refreshed, result.Rescored, result.Promoted)))
		return nil
	})
}

func runSubscriptionsReminder(cmd *cobra.Command, args []string) error {
	var enabled bool
	switch args[1] {
	case "on":
		enabled = true
	case "off":
	default:
		return common.NewUserError("reminder must be 'on' or 'off'", nil)
	}

	days, _ := cmd.Flags().GetInt("days")
	if days < 0 {
		days = appConfig.Lifecycle.DefaultReminderDays
	}

	return withManager(cmd, func(manager *lifecycle.Manager) error {
		sub, err := manager.SetReminder(cmd.Context(), args[0], enabled, days)
		if err != nil {
			return lifecycleError(err)
		}
		msg := "Reminder disabled for " + sub.DisplayName()
		if enabled {
			msg = fmt.Sprintf("Reminder set %d days before %s renews", sub.CancelReminderDaysBefore, sub.DisplayName())
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
		return nil
	})
}

func runSubscriptionsUsage(cmd *cobra.Command, args []string) error {
	usage, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return common.NewUserError("usage must be a number between 0 and 1", err)
	}

	return withManager(cmd, func(manager *lifecycle.Manager) error {
		sub, err := manager.SetUsageSignal(cmd.Context(), args[0], usage)
		if err != nil {
			return lifecycleError(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s zombie score is now %.0f%%", sub.DisplayName(), sub.ZombieScore*100)))
		return nil
	})
}
