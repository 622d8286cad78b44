package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Transaction history",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					merchant TEXT,
					amount REAL NOT NULL,
					category TEXT NOT NULL DEFAULT '',
					transaction_date DATETIME NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_user_date ON transactions(user_id, transaction_date)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Recurring patterns keyed by user and merchant",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS recurring_patterns (
					user_id TEXT NOT NULL,
					merchant TEXT NOT NULL,
					category TEXT NOT NULL DEFAULT '',
					avg_amount REAL NOT NULL,
					frequency TEXT NOT NULL,
					expected_date INTEGER NOT NULL,
					confidence REAL NOT NULL,
					last_occurrence DATETIME NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(user_id, merchant)
				)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Tracked card subscriptions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS card_subscriptions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					merchant_name TEXT NOT NULL,
					ai_merchant_name TEXT NOT NULL DEFAULT '',
					amount_cents INTEGER NOT NULL,
					frequency TEXT NOT NULL,
					next_expected_date DATETIME NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					status TEXT NOT NULL CHECK (status IN ('active', 'paused', 'cancelled')),
					is_confirmed BOOLEAN NOT NULL DEFAULT 0,
					cancel_reminder_enabled BOOLEAN NOT NULL DEFAULT 0,
					cancel_reminder_days_before INTEGER NOT NULL DEFAULT 0,
					zombie_score REAL NOT NULL DEFAULT 0,
					last_charge_date DATETIME NOT NULL,
					last_reminder_cycle INTEGER NOT NULL DEFAULT 0,
					usage_signal REAL,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_card_subscriptions_user_merchant ON card_subscriptions(user_id, merchant_name)`,
				`CREATE INDEX idx_card_subscriptions_status ON card_subscriptions(status)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
