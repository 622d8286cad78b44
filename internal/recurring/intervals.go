package recurring

import "math"

const hoursPerDay = 24

// IntervalStatistics summarizes the day gaps between consecutive charges.
type IntervalStatistics struct {
	Intervals []float64
	Mean      float64
	StdDev    float64 // Population standard deviation
}

// ComputeIntervals measures the gaps, in whole calendar days, between the
// group's consecutive transactions. It reports false when the group has fewer
// than two intervals.
func ComputeIntervals(group MerchantGroup) (IntervalStatistics, bool) {
	txns := group.Transactions
	if len(txns) < MinTransactions {
		return IntervalStatistics{}, false
	}

	intervals := make([]float64, 0, len(txns)-1)
	for i := 0; i+1 < len(txns); i++ {
		gap := txns[i+1].Day().Sub(txns[i].Day()).Hours() / hoursPerDay
		intervals = append(intervals, math.Round(gap))
	}
	if len(intervals) < 2 {
		return IntervalStatistics{}, false
	}

	mean := average(intervals)

	squared := make([]float64, len(intervals))
	for i, v := range intervals {
		squared[i] = (v - mean) * (v - mean)
	}

	return IntervalStatistics{
		Intervals: intervals,
		Mean:      mean,
		StdDev:    math.Sqrt(average(squared)),
	}, true
}

func average(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
