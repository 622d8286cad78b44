package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/cadence/internal/model"
)

const subscriptionColumns = `id, user_id, merchant_name, ai_merchant_name, amount_cents,
	frequency, next_expected_date, confidence, status, is_confirmed,
	cancel_reminder_enabled, cancel_reminder_days_before, zombie_score,
	last_charge_date, last_reminder_cycle, usage_signal, created_at, updated_at`

// CreateSubscription inserts a new tracked subscription.
func (s *SQLiteStorage) CreateSubscription(ctx context.Context, sub *model.CardSubscription) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSubscription(sub); err != nil {
		return err
	}

	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO card_subscriptions (`+subscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sub.ID, sub.UserID, sub.MerchantName, sub.AIMerchantName, sub.AmountCents,
		string(sub.Frequency), sub.NextExpectedDate.UTC(), sub.Confidence, string(sub.Status), sub.IsConfirmed,
		sub.CancelReminderEnabled, sub.CancelReminderDaysBefore, sub.ZombieScore,
		sub.LastChargeDate.UTC(), sub.LastReminderCycle, nullableFloat(sub.UsageSignal), sub.CreatedAt.UTC(), sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", classifyError(err))
	}

	return nil
}

// UpdateSubscription overwrites every mutable field of an existing subscription.
func (s *SQLiteStorage) UpdateSubscription(ctx context.Context, sub *model.CardSubscription) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSubscription(sub); err != nil {
		return err
	}

	sub.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE card_subscriptions SET
			merchant_name = ?,
			ai_merchant_name = ?,
			amount_cents = ?,
			frequency = ?,
			next_expected_date = ?,
			confidence = ?,
			status = ?,
			is_confirmed = ?,
			cancel_reminder_enabled = ?,
			cancel_reminder_days_before = ?,
			zombie_score = ?,
			last_charge_date = ?,
			last_reminder_cycle = ?,
			usage_signal = ?,
			updated_at = ?
		WHERE id = ?
	`,
		sub.MerchantName, sub.AIMerchantName, sub.AmountCents, string(sub.Frequency),
		sub.NextExpectedDate.UTC(), sub.Confidence, string(sub.Status), sub.IsConfirmed,
		sub.CancelReminderEnabled, sub.CancelReminderDaysBefore, sub.ZombieScore,
		sub.LastChargeDate.UTC(), sub.LastReminderCycle, nullableFloat(sub.UsageSignal), sub.UpdatedAt,
		sub.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", classifyError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrSubscriptionNotFound, sub.ID)
	}

	return nil
}

// GetSubscription returns a subscription by id.
func (s *SQLiteStorage) GetSubscription(ctx context.Context, id string) (*model.CardSubscription, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM card_subscriptions
		WHERE id = ?
	`, id)

	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// GetSubscriptions returns every subscription of a user, oldest first.
func (s *SQLiteStorage) GetSubscriptions(ctx context.Context, userID string) ([]model.CardSubscription, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM card_subscriptions
		WHERE user_id = ?
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []model.CardSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}

	return subs, rows.Err()
}

func scanSubscription(row scanner) (*model.CardSubscription, error) {
	var sub model.CardSubscription
	var frequency, status string
	var usage sql.NullFloat64

	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.MerchantName, &sub.AIMerchantName, &sub.AmountCents,
		&frequency, &sub.NextExpectedDate, &sub.Confidence, &status, &sub.IsConfirmed,
		&sub.CancelReminderEnabled, &sub.CancelReminderDaysBefore, &sub.ZombieScore,
		&sub.LastChargeDate, &sub.LastReminderCycle, &usage, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Frequency = model.Frequency(frequency)
	sub.Status = model.SubscriptionStatus(status)
	if usage.Valid {
		v := usage.Float64
		sub.UsageSignal = &v
	}
	return &sub, nil
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
