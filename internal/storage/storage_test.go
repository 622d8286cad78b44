package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cadence/internal/common"
	"github.com/Veraticus/cadence/internal/model"
)

func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSQLiteStorage_Migrate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestSQLiteStorage_Transactions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	txns := []model.Transaction{
		{ID: "t1", UserID: "alice", Merchant: "Netflix", Amount: -15.49, Category: "Streaming", Date: day(2025, 1, 1)},
		{ID: "t2", UserID: "alice", Amount: -3, Date: day(2025, 1, 5)},
		{ID: "t3", UserID: "alice", Merchant: "Netflix", Amount: -15.49, Date: day(2025, 1, 31)},
		{ID: "t4", UserID: "bob", Merchant: "Gym", Amount: -40, Date: day(2025, 1, 2)},
	}
	require.NoError(t, store.SaveTransactions(ctx, txns))
	// Re-importing the same ids is ignored.
	require.NoError(t, store.SaveTransactions(ctx, txns))

	all, err := store.GetUserTransactions(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "t3", all[0].ID, "newest first")
	assert.Empty(t, all[1].Merchant, "null merchant round-trips as empty")
	assert.True(t, day(2025, 1, 31).Equal(all[0].Date))

	limited, err := store.GetUserTransactions(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "t3", limited[0].ID)
	assert.Equal(t, "t2", limited[1].ID)

	users, err := store.GetUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)
}

func TestSQLiteStorage_SaveTransactionsValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.SaveTransactions(ctx, nil), ErrNilParameter)
	assert.ErrorIs(t, store.SaveTransactions(ctx, []model.Transaction{}), ErrEmptySlice)
	assert.ErrorIs(t, store.SaveTransactions(ctx, []model.Transaction{{ID: "x", Date: day(2025, 1, 1)}}), ErrInvalidTransaction)

	_, err := store.GetUserTransactions(ctx, " ", 10)
	assert.ErrorIs(t, err, ErrEmptyString)
}

func testPattern() *model.RecurringPattern {
	return &model.RecurringPattern{
		UserID:         "alice",
		Merchant:       "Netflix",
		Category:       "Streaming",
		AvgAmount:      15.49,
		Frequency:      model.FrequencyMonthly,
		ExpectedDate:   3,
		Confidence:     0.985,
		LastOccurrence: day(2025, 4, 3),
	}
}

func TestSQLiteStorage_UpsertRecurringPattern(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertRecurringPattern(ctx, testPattern()))

	updated := testPattern()
	updated.AvgAmount = 17.99
	updated.ExpectedDate = 4
	updated.Confidence = 0.93
	updated.LastOccurrence = day(2025, 5, 4)
	require.NoError(t, store.UpsertRecurringPattern(ctx, updated))

	patterns, err := store.GetRecurringPatterns(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, patterns, 1, "upsert must replace, not append")

	got := patterns[0]
	assert.InDelta(t, 17.99, got.AvgAmount, 1e-9)
	assert.Equal(t, 4, got.ExpectedDate)
	assert.InDelta(t, 0.93, got.Confidence, 1e-9)
	assert.True(t, day(2025, 5, 4).Equal(got.LastOccurrence))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLiteStorage_UpsertRecurringPatternIsIdempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertRecurringPattern(ctx, testPattern()))
	first, err := store.GetRecurringPattern(ctx, "alice", "Netflix")
	require.NoError(t, err)

	require.NoError(t, store.UpsertRecurringPattern(ctx, testPattern()))
	second, err := store.GetRecurringPattern(ctx, "alice", "Netflix")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSQLiteStorage_UpsertRecurringPatternValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	bad := testPattern()
	bad.Frequency = "daily"

	err := store.UpsertRecurringPattern(ctx, bad)
	assert.ErrorIs(t, err, ErrInvalidPattern)
	assert.ErrorIs(t, store.UpsertRecurringPattern(ctx, nil), ErrNilParameter)

	_, err = store.GetRecurringPattern(ctx, "alice", "Missing")
	assert.ErrorIs(t, err, ErrPatternNotFound)
}

func testSubscription(id string) *model.CardSubscription {
	usage := 0.4
	return &model.CardSubscription{
		ID:                       id,
		UserID:                   "alice",
		MerchantName:             "Netflix",
		AmountCents:              1549,
		Frequency:                model.FrequencyMonthly,
		NextExpectedDate:         day(2025, 5, 3),
		LastChargeDate:           day(2025, 4, 3),
		Confidence:               0.985,
		Status:                   model.StatusActive,
		CancelReminderEnabled:    true,
		CancelReminderDaysBefore: 3,
		UsageSignal:              &usage,
	}
}

func TestSQLiteStorage_Subscriptions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	sub := testSubscription("sub-1")
	require.NoError(t, store.CreateSubscription(ctx, sub))
	assert.False(t, sub.CreatedAt.IsZero())

	got, err := store.GetSubscription(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "Netflix", got.MerchantName)
	assert.Equal(t, int64(1549), got.AmountCents)
	assert.Equal(t, model.StatusActive, got.Status)
	assert.True(t, got.CancelReminderEnabled)
	require.NotNil(t, got.UsageSignal)
	assert.InDelta(t, 0.4, *got.UsageSignal, 1e-9)
	assert.True(t, day(2025, 5, 3).Equal(got.NextExpectedDate))

	got.Status = model.StatusPaused
	got.IsConfirmed = true
	got.AIMerchantName = "Netflix, Inc."
	got.LastReminderCycle = 20211
	got.UsageSignal = nil
	require.NoError(t, store.UpdateSubscription(ctx, got))

	reloaded, err := store.GetSubscription(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaused, reloaded.Status)
	assert.True(t, reloaded.IsConfirmed)
	assert.Equal(t, "Netflix, Inc.", reloaded.AIMerchantName)
	assert.Equal(t, int64(20211), reloaded.LastReminderCycle)
	assert.Nil(t, reloaded.UsageSignal)

	require.NoError(t, store.CreateSubscription(ctx, testSubscription("sub-2")))
	subs, err := store.GetSubscriptions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	none, err := store.GetSubscriptions(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStorage_SubscriptionErrors(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.GetSubscription(ctx, "missing")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	err = store.UpdateSubscription(ctx, testSubscription("missing"))
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	bad := testSubscription("sub-bad")
	bad.Status = "deleted"
	assert.ErrorIs(t, store.CreateSubscription(ctx, bad), ErrInvalidSubscription)

	require.NoError(t, store.CreateSubscription(ctx, testSubscription("dup")))
	err = store.CreateSubscription(ctx, testSubscription("dup"))
	require.Error(t, err)
	assert.False(t, common.IsRetryable(err), "constraint violations are final")
}
