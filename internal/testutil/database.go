// Package testutil provides shared test helpers: an in-memory database and
// builders for transaction histories.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/cadence/internal/model"
	"github.com/Veraticus/cadence/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database that is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.SeedCharges("alice", "Netflix", -15.49, testutil.Monthly(start, 4)...)
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// SeedCharges stores one transaction per date for the merchant and returns them.
func (db *TestDB) SeedCharges(userID, merchant string, amount float64, dates ...time.Time) []model.Transaction {
	db.t.Helper()

	txns := Charges(userID, merchant, amount, dates...)
	if len(txns) == 0 {
		return txns
	}
	if err := db.Storage.SaveTransactions(context.Background(), txns); err != nil {
		db.t.Fatalf("failed to seed transactions for %q: %v", merchant, err)
	}
	return txns
}

// Charges builds transactions for a merchant without storing them. IDs are
// derived from the user, merchant and date, so re-seeding is idempotent.
func Charges(userID, merchant string, amount float64, dates ...time.Time) []model.Transaction {
	txns := make([]model.Transaction, 0, len(dates))
	for _, d := range dates {
		txns = append(txns, model.Transaction{
			ID:       fmt.Sprintf("%s-%s-%s", userID, merchant, d.Format("20060102")),
			UserID:   userID,
			Merchant: merchant,
			Amount:   amount,
			Category: "Subscriptions",
			Date:     d,
		})
	}
	return txns
}

// Every returns count dates starting at start, spaced days apart.
func Every(start time.Time, days, count int) []time.Time {
	dates := make([]time.Time, count)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i*days)
	}
	return dates
}

// Monthly returns count dates one calendar month apart.
func Monthly(start time.Time, count int) []time.Time {
	dates := make([]time.Time, count)
	for i := range dates {
		dates[i] = start.AddDate(0, i, 0)
	}
	return dates
}
