package lifecycle

import (
	"time"

	"github.com/Veraticus/cadence/internal/model"
)

// CycleIndex identifies the billing cycle that ends on next. Each cycle has
// its own expected charge date, so the day number of that date is unique per cycle.
func CycleIndex(next time.Time) int64 {
	return model.CalendarDay(next).Unix() / secondsPerDay
}

// DaysUntil counts whole calendar days from now until due. It is negative once due has passed.
func DaysUntil(now, due time.Time) int {
	return int(CycleIndex(due) - CycleIndex(now))
}

// DueReminder reports the reminder event for sub if one should fire now.
// It fires for active subscriptions with reminders enabled, inside the
// reminder window, and only if this cycle has not been reminded already.
func DueReminder(sub model.CardSubscription, now time.Time) (model.ReminderEvent, bool) {
	if sub.Status != model.StatusActive || !sub.CancelReminderEnabled || sub.NextExpectedDate.IsZero() {
		return model.ReminderEvent{}, false
	}

	cycle := CycleIndex(sub.NextExpectedDate)
	if sub.LastReminderCycle == cycle {
		return model.ReminderEvent{}, false
	}

	days := DaysUntil(now, sub.NextExpectedDate)
	if days < 0 || days > sub.CancelReminderDaysBefore {
		return model.ReminderEvent{}, false
	}

	return model.ReminderEvent{
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		MerchantName:   sub.DisplayName(),
		AmountCents:    sub.AmountCents,
		DueDate:        model.CalendarDay(sub.NextExpectedDate),
		DaysUntilDue:   days,
		Cycle:          cycle,
	}, true
}
