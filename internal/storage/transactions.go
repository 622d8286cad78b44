package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/cadence/internal/model"
)

// SaveTransactions stores transactions, ignoring ids that already exist.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveTransactionsTx(ctx, tx, transactions); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveTransactionsTx(ctx context.Context, tx *sql.Tx, transactions []model.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, user_id, merchant, amount, category, transaction_date
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, txn := range transactions {
		var merchant sql.NullString
		if txn.Merchant != "" {
			merchant = sql.NullString{String: txn.Merchant, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			txn.ID,
			txn.UserID,
			merchant,
			txn.Amount,
			txn.Category,
			txn.Date.UTC(),
		); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}

	return nil
}

// GetUserTransactions returns a user's most recent transactions, newest first.
// A non-positive limit returns the full history.
func (s *SQLiteStorage) GetUserTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	return s.getUserTransactionsTx(ctx, s.db, userID, limit)
}

func (s *SQLiteStorage) getUserTransactionsTx(ctx context.Context, q queryable, userID string, limit int) ([]model.Transaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, merchant, amount, category, transaction_date
		FROM transactions
		WHERE user_id = ?
		ORDER BY transaction_date DESC, id
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		var merchant sql.NullString
		if err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&merchant,
			&txn.Amount,
			&txn.Category,
			&txn.Date,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Merchant = merchant.String
		transactions = append(transactions, txn)
	}

	return transactions, rows.Err()
}

// GetUserIDs lists every user that has transaction history.
func (s *SQLiteStorage) GetUserIDs(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM transactions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}

	return users, rows.Err()
}
