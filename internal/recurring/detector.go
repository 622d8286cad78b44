package recurring

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/cadence/internal/common"
	"github.com/Veraticus/cadence/internal/model"
)

// Detection is a merchant group that passed every gate, with the pattern
// record ready to persist.
type Detection struct {
	Pattern          model.RecurringPattern
	Stats            IntervalStatistics
	TransactionCount int
}

// Detect scans one user's transactions and returns a detection for every
// merchant billing on a consistent cadence, ordered by merchant key.
// Groups that fail a gate are skipped silently; that is the normal negative result.
func Detect(userID string, transactions []model.Transaction) []Detection {
	groups := GroupTransactions(transactions)

	detections := make([]Detection, 0, len(groups))
	for _, group := range groups {
		detection, ok := Analyze(userID, group)
		if !ok {
			continue
		}
		detections = append(detections, detection)
	}
	return detections
}

// Analyze runs interval statistics, the recurrence decision and frequency
// classification on a single group.
func Analyze(userID string, group MerchantGroup) (Detection, bool) {
	stats, ok := ComputeIntervals(group)
	if !ok {
		return Detection{}, false
	}

	recurring, confidence := ScoreConfidence(stats)
	if !ShouldEmit(recurring, confidence) {
		common.LogDebug("Merchant not recurring", common.Fields{
			"merchant":   group.Key,
			"mean":       stats.Mean,
			"std_dev":    stats.StdDev,
			"confidence": confidence,
		})
		return Detection{}, false
	}

	latest := group.Latest()
	return Detection{
		Pattern: model.RecurringPattern{
			UserID:         userID,
			Merchant:       group.Key,
			Category:       dominantCategory(group.Transactions),
			AvgAmount:      averageAbsoluteAmount(group.Transactions),
			Frequency:      model.ClassifyFrequency(stats.Mean),
			ExpectedDate:   latest.Day().Day(),
			Confidence:     confidence,
			LastOccurrence: latest.Day(),
		},
		Stats:            stats,
		TransactionCount: len(group.Transactions),
	}, true
}

// averageAbsoluteAmount is rounded to cents so repeated runs store identical values.
func averageAbsoluteAmount(txns []model.Transaction) float64 {
	sum := decimal.Zero
	for _, txn := range txns {
		sum = sum.Add(decimal.NewFromFloat(txn.Amount).Abs())
	}
	return sum.Div(decimal.NewFromInt(int64(len(txns)))).Round(2).InexactFloat64()
}

// dominantCategory picks the most frequent non-empty category; ties go to the
// one seen most recently.
func dominantCategory(txns []model.Transaction) string {
	counts := make(map[string]int)
	lastSeen := make(map[string]int)
	for i, txn := range txns {
		if txn.Category == "" {
			continue
		}
		counts[txn.Category]++
		lastSeen[txn.Category] = i
	}

	best := ""
	for category, count := range counts {
		if best == "" ||
			count > counts[best] ||
			(count == counts[best] && lastSeen[category] > lastSeen[best]) {
			best = category
		}
	}
	return best
}
