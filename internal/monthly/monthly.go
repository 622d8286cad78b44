// Package monthly converts subscription charges to a common monthly cost basis.
package monthly

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/cadence/internal/model"
)

// WeeksPerMonth is the weekly-to-monthly factor used in every reported total.
var WeeksPerMonth = decimal.RequireFromString("4.33")

var (
	three  = decimal.NewFromInt(3)
	twelve = decimal.NewFromInt(12)
	cents  = decimal.NewFromInt(100)
)

// Equivalent converts one charge to its monthly equivalent. Unknown
// frequencies contribute zero rather than failing.
func Equivalent(amount decimal.Decimal, frequency model.Frequency) decimal.Decimal {
	switch frequency {
	case model.FrequencyWeekly:
		return amount.Mul(WeeksPerMonth)
	case model.FrequencyMonthly:
		return amount
	case model.FrequencyQuarterly:
		return amount.Div(three)
	case model.FrequencyYearly:
		return amount.Div(twelve)
	default:
		return decimal.Zero
	}
}

// FromCents turns an amount in cents into a decimal currency value.
func FromCents(amountCents int64) decimal.Decimal {
	return decimal.NewFromInt(amountCents).Div(cents)
}

// Line is one subscription's contribution to the report.
type Line struct {
	SubscriptionID string
	Merchant       string
	Category       string
	Frequency      model.Frequency
	Charge         decimal.Decimal
	Monthly        decimal.Decimal
}

// Report aggregates the monthly-equivalent cost of a user's active subscriptions.
type Report struct {
	ByFrequency  map[model.Frequency]decimal.Decimal
	ByCategory   map[string]decimal.Decimal
	Lines        []Line
	TotalMonthly decimal.Decimal
	TotalYearly  decimal.Decimal
	ActiveCount  int
}

// Aggregate sums the monthly equivalents of subscriptions with status active.
// Paused and cancelled subscriptions are ignored. Totals are rounded to cents;
// lines keep full precision. categories maps merchant name to category and may be nil.
func Aggregate(subs []model.CardSubscription, categories map[string]string) Report {
	report := Report{
		ByFrequency:  make(map[model.Frequency]decimal.Decimal),
		ByCategory:   make(map[string]decimal.Decimal),
		TotalMonthly: decimal.Zero,
	}

	for _, sub := range subs {
		if sub.Status != model.StatusActive {
			continue
		}

		charge := FromCents(sub.AmountCents).Abs()
		monthly := Equivalent(charge, sub.Frequency)

		category := categories[sub.MerchantName]
		if category == "" {
			category = "Uncategorized"
		}

		report.Lines = append(report.Lines, Line{
			SubscriptionID: sub.ID,
			Merchant:       sub.DisplayName(),
			Category:       category,
			Frequency:      sub.Frequency,
			Charge:         charge,
			Monthly:        monthly,
		})
		report.ActiveCount++
		report.TotalMonthly = report.TotalMonthly.Add(monthly)
		report.ByFrequency[sub.Frequency] = report.ByFrequency[sub.Frequency].Add(monthly)
		report.ByCategory[category] = report.ByCategory[category].Add(monthly)
	}

	for k, v := range report.ByFrequency {
		report.ByFrequency[k] = v.Round(2)
	}
	for k, v := range report.ByCategory {
		report.ByCategory[k] = v.Round(2)
	}
	report.TotalYearly = report.TotalMonthly.Mul(twelve).Round(2)
	report.TotalMonthly = report.TotalMonthly.Round(2)

	sort.SliceStable(report.Lines, func(i, j int) bool {
		return report.Lines[i].Monthly.GreaterThan(report.Lines[j].Monthly)
	})

	return report
}
