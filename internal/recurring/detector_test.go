package recurring

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cadence/internal/model"
)

var baseDate = time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)

// charges builds transactions for a merchant on the given 1-based day offsets.
func charges(merchant string, amount float64, days ...int) []model.Transaction {
	txns := make([]model.Transaction, 0, len(days))
	for i, d := range days {
		txns = append(txns, model.Transaction{
			ID:       fmt.Sprintf("%s-%d", merchant, i),
			UserID:   "user-1",
			Merchant: merchant,
			Amount:   amount,
			Category: "Subscriptions",
			Date:     baseDate.AddDate(0, 0, d-1),
		})
	}
	return txns
}

func TestNormalizeMerchant(t *testing.T) {
	assert.Equal(t, UnknownMerchant, NormalizeMerchant(""))
	assert.Equal(t, UnknownMerchant, NormalizeMerchant("   "))
	assert.Equal(t, "Netflix", NormalizeMerchant("  Netflix "))
	assert.NotEqual(t, NormalizeMerchant("NETFLIX"), NormalizeMerchant("Netflix"))
}

func TestGroupTransactions(t *testing.T) {
	txns := append(charges("Gym", -40, 60, 1, 30), charges("Coffee", -4, 1, 2)...)
	txns = append(txns,
		model.Transaction{ID: "u1", Date: baseDate},
		model.Transaction{ID: "u2", Merchant: " ", Date: baseDate.AddDate(0, 0, 5)},
		model.Transaction{ID: "u3", Date: baseDate.AddDate(0, 0, 9)},
	)

	groups := GroupTransactions(txns)
	require.Len(t, groups, 2)

	assert.Equal(t, "Gym", groups[0].Key)
	assert.Equal(t, UnknownMerchant, groups[1].Key)
	assert.Len(t, groups[1].Transactions, 3)

	gym := groups[0].Transactions
	for i := 1; i < len(gym); i++ {
		assert.True(t, gym[i-1].Date.Before(gym[i].Date), "group must be sorted ascending")
	}
}

func TestComputeIntervals(t *testing.T) {
	t.Run("population standard deviation", func(t *testing.T) {
		group := GroupTransactions(charges("Netflix", -15.49, 1, 31, 62, 93))[0]
		stats, ok := ComputeIntervals(group)
		require.True(t, ok)
		assert.Equal(t, []float64{30, 31, 31}, stats.Intervals)
		assert.InDelta(t, 30.667, stats.Mean, 0.001)
		assert.InDelta(t, 0.471, stats.StdDev, 0.001)
	})

	t.Run("time of day does not create fractional days", func(t *testing.T) {
		txns := []model.Transaction{
			{ID: "a", Merchant: "Rent", Date: time.Date(2025, 1, 1, 23, 59, 0, 0, time.UTC)},
			{ID: "b", Merchant: "Rent", Date: time.Date(2025, 2, 1, 0, 1, 0, 0, time.UTC)},
			{ID: "c", Merchant: "Rent", Date: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		}
		stats, ok := ComputeIntervals(GroupTransactions(txns)[0])
		require.True(t, ok)
		assert.Equal(t, []float64{31, 28}, stats.Intervals)
	})

	t.Run("too few transactions", func(t *testing.T) {
		_, ok := ComputeIntervals(MerchantGroup{Key: "x", Transactions: charges("x", 1, 1, 30)})
		assert.False(t, ok)
	})
}

func TestScoreConfidence(t *testing.T) {
	tests := []struct {
		name          string
		stats         IntervalStatistics
		wantRecurring bool
		wantConf      float64
		wantEmit      bool
	}{
		{
			name:          "perfect cadence",
			stats:         IntervalStatistics{Mean: 30, StdDev: 0},
			wantRecurring: true, wantConf: 1, wantEmit: true,
		},
		{
			name:          "spread at threshold is not recurring",
			stats:         IntervalStatistics{Mean: 30, StdDev: 5},
			wantRecurring: false, wantConf: 0, wantEmit: false,
		},
		{
			name:          "tight but short cadence is floored and suppressed",
			stats:         IntervalStatistics{Mean: 4, StdDev: 2},
			wantRecurring: true, wantConf: 0.7, wantEmit: false,
		},
		{
			name:          "same-day charges are not a cadence",
			stats:         IntervalStatistics{Mean: 0, StdDev: 0},
			wantRecurring: false, wantConf: 0, wantEmit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recurring, conf := ScoreConfidence(tt.stats)
			assert.Equal(t, tt.wantRecurring, recurring)
			assert.InDelta(t, tt.wantConf, conf, 1e-9)
			assert.Equal(t, tt.wantEmit, ShouldEmit(recurring, conf))
		})
	}
}

func TestDetect_Netflix(t *testing.T) {
	detections := Detect("user-1", charges("Netflix", -15.49, 1, 31, 62, 93))
	require.Len(t, detections, 1)

	d := detections[0]
	assert.Equal(t, "Netflix", d.Pattern.Merchant)
	assert.Equal(t, model.FrequencyMonthly, d.Pattern.Frequency)
	assert.InDelta(t, 15.49, d.Pattern.AvgAmount, 1e-9)
	assert.InDelta(t, 0.985, d.Pattern.Confidence, 0.001)
	assert.Equal(t, 4, d.TransactionCount)
	assert.Equal(t, "user-1", d.Pattern.UserID)
	assert.Equal(t, "Subscriptions", d.Pattern.Category)

	last := baseDate.AddDate(0, 0, 92)
	assert.Equal(t, model.CalendarDay(last), d.Pattern.LastOccurrence)
	assert.Equal(t, last.Day(), d.Pattern.ExpectedDate)
}

func TestDetect_RandomShop(t *testing.T) {
	assert.Empty(t, Detect("user-1", charges("Random Shop", -20, 1, 4, 50)))
}

func TestDetect_FewerThanThreeTransactions(t *testing.T) {
	assert.Empty(t, Detect("user-1", charges("Netflix", -15.49, 1, 31)))
	assert.Empty(t, Detect("user-1", charges("Netflix", -15.49, 1)))
	assert.Empty(t, Detect("user-1", nil))
}

func TestDetect_EqualIntervals(t *testing.T) {
	for _, gap := range []int{7, 14, 30, 90, 365} {
		t.Run(fmt.Sprintf("every %d days", gap), func(t *testing.T) {
			detections := Detect("user-1", charges("Steady", -9.99, 1, 1+gap, 1+2*gap, 1+3*gap))
			require.Len(t, detections, 1)
			assert.Zero(t, detections[0].Stats.StdDev)
			assert.Equal(t, 1.0, detections[0].Pattern.Confidence)
		})
	}
}

func TestDetect_BoundaryMeans(t *testing.T) {
	tests := []struct {
		want model.Frequency
		gap  int
	}{
		{gap: 10, want: model.FrequencyWeekly},
		{gap: 35, want: model.FrequencyMonthly},
		{gap: 100, want: model.FrequencyQuarterly},
		{gap: 101, want: model.FrequencyYearly},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("mean %d", tt.gap), func(t *testing.T) {
			detections := Detect("user-1", charges("Edge", -1, 1, 1+tt.gap, 1+2*tt.gap))
			require.Len(t, detections, 1)
			assert.Equal(t, tt.want, detections[0].Pattern.Frequency)
		})
	}
}

func TestDetect_UnorderedInputAndMixedSigns(t *testing.T) {
	txns := charges("Spotify", -10.99, 61, 1, 31, 91)
	txns[1].Amount = 10.99 // refund-style sign flip still counts by magnitude
	txns[2].Category = "Music"
	txns[3].Category = "Music"

	detections := Detect("user-1", txns)
	require.Len(t, detections, 1)
	assert.InDelta(t, 10.99, detections[0].Pattern.AvgAmount, 1e-9)
	assert.Equal(t, "Music", detections[0].Pattern.Category)
	assert.Equal(t, model.CalendarDay(baseDate.AddDate(0, 0, 90)), detections[0].Pattern.LastOccurrence)
}

func TestDetect_IsDeterministic(t *testing.T) {
	txns := append(charges("Netflix", -15.49, 1, 31, 62, 93), charges("Rent", -1200, 1, 32, 60, 91)...)
	first := Detect("user-1", txns)
	second := Detect("user-1", txns)
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "Netflix", first[0].Pattern.Merchant)
	assert.Equal(t, "Rent", first[1].Pattern.Merchant)
}
