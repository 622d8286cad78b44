// Package lifecycle manages recurring patterns once they are promoted to
// tracked subscriptions: status changes, confirmation, zombie scoring and
// cancellation reminders.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/cadence/internal/common"
	"github.com/Veraticus/cadence/internal/model"
	"github.com/Veraticus/cadence/internal/service"
)

// Config holds lifecycle policy.
type Config struct {
	AutoPromote          bool
	PromoteMinConfidence float64
	DefaultReminderDays  int
}

// Manager applies lifecycle operations against the subscription store.
type Manager struct {
	patterns  service.PatternStore
	subs      service.SubscriptionStore
	annotator service.MerchantAnnotator
	now       func() time.Time
	cfg       Config
}

// NewManager creates a lifecycle manager.
func NewManager(patterns service.PatternStore, subs service.SubscriptionStore, cfg Config) *Manager {
	return &Manager{
		patterns: patterns,
		subs:     subs,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithAnnotator sets the service used to clean merchant names on promotion.
func (m *Manager) WithAnnotator(annotator service.MerchantAnnotator) *Manager {
	m.annotator = annotator
	return m
}

// WithClock overrides the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Promote starts tracking a recurring pattern. A live subscription for the
// same merchant is refreshed instead of duplicated. Cancelled subscriptions are
// never revived; promoting their merchant again creates a new record.
func (m *Manager) Promote(ctx context.Context, pattern model.RecurringPattern) (*model.CardSubscription, error) {
	subs, err := m.subs.GetSubscriptions(ctx, pattern.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	if live := findLive(subs, pattern.Merchant); live != nil {
		m.refresh(live, pattern)
		if err := m.subs.UpdateSubscription(ctx, live); err != nil {
			return nil, fmt.Errorf("failed to refresh subscription %s: %w", live.ID, err)
		}
		return live, nil
	}

	sub := &model.CardSubscription{
		ID:                       uuid.NewString(),
		UserID:                   pattern.UserID,
		MerchantName:             pattern.Merchant,
		Status:                   model.StatusActive,
		CancelReminderDaysBefore: m.cfg.DefaultReminderDays,
	}
	m.refresh(sub, pattern)
	m.annotate(ctx, sub)

	if err := m.subs.CreateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	slog.Info("Promoted recurring pattern",
		"user_id", sub.UserID,
		"merchant", sub.MerchantName,
		"subscription_id", sub.ID,
		"frequency", sub.Frequency)
	return sub, nil
}

// SyncResult counts what a Sync changed.
type SyncResult struct {
	Refreshed int
	Promoted  int
	Rescored  int
}

// Sync brings a user's subscriptions in line with the latest patterns and
// recomputes zombie scores. With AutoPromote set, untracked patterns above the
// confidence threshold are promoted, and a cancelled merchant that has billed
// again since cancellation is promoted as a new record.
func (m *Manager) Sync(ctx context.Context, userID string) (SyncResult, error) {
	var result SyncResult

	patterns, err := m.patterns.GetRecurringPatterns(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to load patterns: %w", err)
	}
	subs, err := m.subs.GetSubscriptions(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	byMerchant := make(map[string]model.RecurringPattern, len(patterns))
	for _, p := range patterns {
		byMerchant[p.Merchant] = p
	}

	var errs []error
	tracked := make(map[string]bool)
	for i := range subs {
		sub := &subs[i]
		if sub.Status == model.StatusCancelled {
			continue
		}
		tracked[sub.MerchantName] = true

		if pattern, ok := byMerchant[sub.MerchantName]; ok {
			m.refresh(sub, pattern)
			result.Refreshed++
		} else {
			sub.ZombieScore = ZombieScore(*sub, m.now())
			result.Rescored++
		}

		if err := m.subs.UpdateSubscription(ctx, sub); err != nil {
			errs = append(errs, fmt.Errorf("subscription %s: %w", sub.ID, err))
		}
	}

	if m.cfg.AutoPromote {
		for _, pattern := range patterns {
			if tracked[pattern.Merchant] || pattern.Confidence < m.cfg.PromoteMinConfidence {
				continue
			}
			if cancelled := latestCancelled(subs, pattern.Merchant); cancelled != nil &&
				!pattern.LastOccurrence.After(cancelled.LastChargeDate) {
				continue
			}
			if _, err := m.Promote(ctx, pattern); err != nil {
				errs = append(errs, fmt.Errorf("promote %q: %w", pattern.Merchant, err))
				continue
			}
			result.Promoted++
		}
	}

	return result, errors.Join(errs...)
}

// Confirm records the user's acknowledgement of a detection. It never unsets.
func (m *Manager) Confirm(ctx context.Context, id string) (*model.CardSubscription, error) {
	return m.mutate(ctx, id, func(sub *model.CardSubscription) error {
		sub.IsConfirmed = true
		return nil
	})
}

// Pause moves an active subscription to paused.
func (m *Manager) Pause(ctx context.Context, id string) (*model.CardSubscription, error) {
	return m.transition(ctx, id, model.StatusPaused)
}

// Resume moves a paused subscription back to active.
func (m *Manager) Resume(ctx context.Context, id string) (*model.CardSubscription, error) {
	return m.transition(ctx, id, model.StatusActive)
}

// Cancel ends tracking. The record is kept.
func (m *Manager) Cancel(ctx context.Context, id string) (*model.CardSubscription, error) {
	return m.transition(ctx, id, model.StatusCancelled)
}

// SetReminder toggles the cancellation reminder and its lead time in days.
func (m *Manager) SetReminder(ctx context.Context, id string, enabled bool, daysBefore int) (*model.CardSubscription, error) {
	if daysBefore < 0 {
		return nil, fmt.Errorf("%w: reminder days before cannot be negative", common.ErrInvalidConfig)
	}
	return m.mutate(ctx, id, func(sub *model.CardSubscription) error {
		sub.CancelReminderEnabled = enabled
		sub.CancelReminderDaysBefore = daysBefore
		return nil
	})
}

// SetUsageSignal records how much the subscription is being used, in [0,1],
// and rescores it.
func (m *Manager) SetUsageSignal(ctx context.Context, id string, usage float64) (*model.CardSubscription, error) {
	if usage < 0 || usage > 1 {
		return nil, fmt.Errorf("%w: usage signal must be between 0 and 1", common.ErrInvalidConfig)
	}
	return m.mutate(ctx, id, func(sub *model.CardSubscription) error {
		sub.UsageSignal = &usage
		sub.ZombieScore = ZombieScore(*sub, m.now())
		return nil
	})
}

// EvaluateReminders sends every reminder due for the user and records the
// cycle marker after each successful send. A failed send leaves the marker
// alone so the next evaluation tries again.
func (m *Manager) EvaluateReminders(ctx context.Context, userID string, notifier service.Notifier) ([]model.ReminderEvent, error) {
	subs, err := m.subs.GetSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	now := m.now()
	var fired []model.ReminderEvent
	var errs []error
	for i := range subs {
		sub := &subs[i]
		event, due := DueReminder(*sub, now)
		if !due {
			continue
		}

		if err := notifier.SendReminder(ctx, event); err != nil {
			common.LogError(err, "Failed to send reminder", common.Fields{
				"subscription_id": sub.ID,
				"merchant":        event.MerchantName,
			})
			errs = append(errs, fmt.Errorf("reminder for %s: %w", sub.ID, err))
			continue
		}

		sub.LastReminderCycle = event.Cycle
		if err := m.subs.UpdateSubscription(ctx, sub); err != nil {
			errs = append(errs, fmt.Errorf("record reminder for %s: %w", sub.ID, err))
			continue
		}
		fired = append(fired, event)
	}

	return fired, errors.Join(errs...)
}

func (m *Manager) transition(ctx context.Context, id string, to model.SubscriptionStatus) (*model.CardSubscription, error) {
	return m.mutate(ctx, id, func(sub *model.CardSubscription) error {
		if sub.Status == model.StatusCancelled {
			return fmt.Errorf("%w: %s", common.ErrAlreadyCancelled, sub.ID)
		}
		if !model.CanTransition(sub.Status, to) {
			return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, sub.Status, to)
		}
		sub.Status = to
		return nil
	})
}

func (m *Manager) mutate(ctx context.Context, id string, apply func(*model.CardSubscription) error) (*model.CardSubscription, error) {
	sub, err := m.subs.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(sub); err != nil {
		return nil, err
	}
	if err := m.subs.UpdateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to update subscription %s: %w", id, err)
	}
	return sub, nil
}

// refresh copies the latest detected statistics onto a subscription.
func (m *Manager) refresh(sub *model.CardSubscription, pattern model.RecurringPattern) {
	sub.AmountCents = decimal.NewFromFloat(pattern.AvgAmount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	sub.Frequency = pattern.Frequency
	sub.Confidence = pattern.Confidence
	if pattern.LastOccurrence.After(sub.LastChargeDate) {
		sub.LastChargeDate = pattern.LastOccurrence
	}
	sub.NextExpectedDate = sub.Frequency.Next(sub.LastChargeDate)
	sub.ZombieScore = ZombieScore(*sub, m.now())
}

func (m *Manager) annotate(ctx context.Context, sub *model.CardSubscription) {
	if m.annotator == nil {
		return
	}
	name, err := m.annotator.CleanMerchantName(ctx, sub.MerchantName)
	if err != nil {
		slog.Warn("Merchant annotation failed", "merchant", sub.MerchantName, "error", err)
		return
	}
	if name != "" {
		sub.AIMerchantName = name
	}
}

func findLive(subs []model.CardSubscription, merchant string) *model.CardSubscription {
	var found *model.CardSubscription
	for i := range subs {
		if subs[i].MerchantName == merchant && subs[i].Status != model.StatusCancelled {
			found = &subs[i]
		}
	}
	return found
}

func latestCancelled(subs []model.CardSubscription, merchant string) *model.CardSubscription {
	var found *model.CardSubscription
	for i := range subs {
		sub := &subs[i]
		if sub.MerchantName != merchant || sub.Status != model.StatusCancelled {
			continue
		}
		if found == nil || sub.LastChargeDate.After(found.LastChargeDate) {
			found = sub
		}
	}
	return found
}
