package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/cadence/internal/model"
)

// UpsertRecurringPattern inserts the pattern or replaces the statistics of the
// existing row for the same (user, merchant). created_at is kept from the first insert.
func (s *SQLiteStorage) UpsertRecurringPattern(ctx context.Context, pattern *model.RecurringPattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_patterns (
			user_id, merchant, category, avg_amount, frequency,
			expected_date, confidence, last_occurrence
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, merchant) DO UPDATE SET
			category = excluded.category,
			avg_amount = excluded.avg_amount,
			frequency = excluded.frequency,
			expected_date = excluded.expected_date,
			confidence = excluded.confidence,
			last_occurrence = excluded.last_occurrence
	`,
		pattern.UserID,
		pattern.Merchant,
		pattern.Category,
		pattern.AvgAmount,
		string(pattern.Frequency),
		pattern.ExpectedDate,
		pattern.Confidence,
		pattern.LastOccurrence.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert recurring pattern %q: %w", pattern.Merchant, classifyError(err))
	}

	return nil
}

const patternColumns = `user_id, merchant, category, avg_amount, frequency,
	expected_date, confidence, last_occurrence, created_at`

// GetRecurringPattern returns the pattern for one merchant.
func (s *SQLiteStorage) GetRecurringPattern(ctx context.Context, userID, merchant string) (*model.RecurringPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+patternColumns+`
		FROM recurring_patterns
		WHERE user_id = ? AND merchant = ?
	`, userID, merchant)

	pattern, err := scanPattern(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatternNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring pattern: %w", err)
	}
	return pattern, nil
}

// GetRecurringPatterns returns all of a user's patterns ordered by merchant.
func (s *SQLiteStorage) GetRecurringPatterns(ctx context.Context, userID string) ([]model.RecurringPattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+patternColumns+`
		FROM recurring_patterns
		WHERE user_id = ?
		ORDER BY merchant
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.RecurringPattern
	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring pattern: %w", err)
		}
		patterns = append(patterns, *pattern)
	}

	return patterns, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPattern(row scanner) (*model.RecurringPattern, error) {
	var pattern model.RecurringPattern
	var frequency string
	err := row.Scan(
		&pattern.UserID,
		&pattern.Merchant,
		&pattern.Category,
		&pattern.AvgAmount,
		&frequency,
		&pattern.ExpectedDate,
		&pattern.Confidence,
		&pattern.LastOccurrence,
		&pattern.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	pattern.Frequency = model.Frequency(frequency)
	return &pattern, nil
}
