// Package notify delivers reminder events to the local terminal and log.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/cadence/internal/model"
	"github.com/Veraticus/cadence/internal/monthly"
)

// Console writes one line per reminder to a writer.
type Console struct {
	writer io.Writer
}

// NewConsole creates a notifier that writes reminders to w.
func NewConsole(w io.Writer) *Console {
	return &Console{writer: w}
}

// SendReminder prints the reminder. Write failures are returned so the
// reminder stays pending.
func (c *Console) SendReminder(ctx context.Context, event model.ReminderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	when := "today"
	if event.DaysUntilDue > 0 {
		when = fmt.Sprintf("in %d days", event.DaysUntilDue)
		if event.DaysUntilDue == 1 {
			when = "tomorrow"
		}
	}

	_, err := fmt.Fprintf(c.writer, "Reminder: %s renews %s (%s) for %s. Cancel now if you no longer use it.\n",
		event.MerchantName,
		when,
		event.DueDate.Format("2006-01-02"),
		monthly.FromCents(event.AmountCents).StringFixed(2))
	if err != nil {
		return fmt.Errorf("failed to write reminder: %w", err)
	}
	return nil
}

// Log records reminders as structured log entries.
type Log struct{}

// SendReminder logs the reminder at info level.
func (Log) SendReminder(_ context.Context, event model.ReminderEvent) error {
	slog.Info("Cancellation reminder",
		"user_id", event.UserID,
		"subscription_id", event.SubscriptionID,
		"merchant", event.MerchantName,
		"due_date", event.DueDate.Format("2006-01-02"),
		"days_until_due", event.DaysUntilDue,
		"amount_cents", event.AmountCents)
	return nil
}
