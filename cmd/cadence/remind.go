package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cadence/internal/cli"
	"github.com/Veraticus/cadence/internal/common"
	"github.com/Veraticus/cadence/internal/lifecycle"
	"github.com/Veraticus/cadence/internal/model"
	"github.com/Veraticus/cadence/internal/notify"
	"github.com/Veraticus/cadence/internal/service"
)

func remindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Send cancellation reminders that are due",
		Long: `Evaluate every active subscription with a reminder enabled and send
the reminders that are due. Each billing cycle is reminded at most once, so
this is safe to run from cron as often as you like.`,
		Args: cobra.NoArgs,
		RunE: runRemind,
	}
	addUserFlag(cmd)
	cmd.Flags().String("now", "", "evaluate as of this date (YYYY-MM-DD) instead of today")
	cmd.Flags().Bool("log", false, "send reminders to the log instead of the terminal")
	return cmd
}

func runRemind(cmd *cobra.Command, _ []string) error {
	userID, err := requireUser(cmd)
	if err != nil {
		return err
	}

	now := time.Now()
	if v, _ := cmd.Flags().GetString("now"); v != "" {
		now, err = model.ParseDate(v)
		if err != nil {
			return common.NewUserError("--now must be a date like 2025-05-01", err)
		}
	}

	var notifier service.Notifier = notify.NewConsole(cmd.OutOrStdout())
	if useLog, _ := cmd.Flags().GetBool("log"); useLog {
		notifier = notify.Log{}
	}

	return withManager(cmd, func(manager *lifecycle.Manager) error {
		fired, err := manager.WithClock(func() time.Time { return now }).EvaluateReminders(cmd.Context(), userID, notifier)
		if renderErr := cli.RenderReminders(cmd.OutOrStdout(), fired); renderErr != nil {
			return renderErr
		}
		if err != nil {
			return fmt.Errorf("some reminders could not be sent: %w", err)
		}
		return nil
	})
}
