package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cadence/internal/annotate"
	"github.com/Veraticus/cadence/internal/config"
	"github.com/Veraticus/cadence/internal/model"
	"github.com/Veraticus/cadence/internal/testutil"
)

func withAppConfig(t *testing.T, cfg *config.Config) {
	t.Helper()
	prev := appConfig
	appConfig = cfg
	t.Cleanup(func() { appConfig = prev })
}

func TestNewManager_AppliesMerchantAliases(t *testing.T) {
	withAppConfig(t, &config.Config{
		Lifecycle: config.LifecycleConfig{DefaultReminderDays: 5},
		Merchants: config.MerchantsConfig{Aliases: []annotate.AliasRule{
			{Match: "NETFLIX.COM", Name: "Netflix"},
		}},
	})
	db := testutil.SetupTestDB(t)

	manager, err := newManager(db.Storage)
	require.NoError(t, err)

	last := time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)
	sub, err := manager.Promote(context.Background(), model.RecurringPattern{
		UserID:         "alice",
		Merchant:       "NETFLIX.COM",
		Frequency:      model.FrequencyMonthly,
		AvgAmount:      15.49,
		Confidence:     0.95,
		ExpectedDate:   3,
		LastOccurrence: last,
	})
	require.NoError(t, err)

	assert.Equal(t, "Netflix", sub.AIMerchantName)
	assert.Equal(t, "Netflix", sub.DisplayName())
	assert.Equal(t, 5, sub.CancelReminderDaysBefore)
}

func TestNewManager_WithoutAliases(t *testing.T) {
	withAppConfig(t, &config.Config{})
	db := testutil.SetupTestDB(t)

	manager, err := newManager(db.Storage)
	require.NoError(t, err)

	sub, err := manager.Promote(context.Background(), model.RecurringPattern{
		UserID:         "alice",
		Merchant:       "Spotify",
		Frequency:      model.FrequencyMonthly,
		AvgAmount:      10.99,
		Confidence:     0.9,
		ExpectedDate:   1,
		LastOccurrence: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Empty(t, sub.AIMerchantName)
	assert.Equal(t, "Spotify", sub.DisplayName())
}

func TestNewManager_InvalidAliases(t *testing.T) {
	withAppConfig(t, &config.Config{
		Merchants: config.MerchantsConfig{Aliases: []annotate.AliasRule{{Match: "NETFLIX"}}},
	})
	db := testutil.SetupTestDB(t)

	_, err := newManager(db.Storage)
	assert.ErrorIs(t, err, annotate.ErrInvalidRule)
}
