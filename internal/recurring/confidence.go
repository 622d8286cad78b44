package recurring

import "math"

// Detection policy thresholds.
const (
	// MaxStdDevDays is the exclusive upper bound on interval spread for a recurring group.
	MaxStdDevDays = 5.0
	// MinConfidence is both the floor of the score and the exclusive threshold for emitting.
	MinConfidence = 0.7
)

// ScoreConfidence decides whether the intervals describe a recurring charge
// and how confident that call is.
//
// The score is floored at MinConfidence while emission requires strictly more
// than MinConfidence, so a tight-but-short cadence whose raw score falls at or
// below the floor is suppressed.
func ScoreConfidence(stats IntervalStatistics) (recurring bool, confidence float64) {
	if stats.Mean <= 0 || stats.StdDev >= MaxStdDevDays {
		return false, 0
	}
	return true, math.Max(MinConfidence, 1-stats.StdDev/stats.Mean)
}

// ShouldEmit applies both gates of the recurrence decision.
func ShouldEmit(recurring bool, confidence float64) bool {
	return recurring && confidence > MinConfidence
}
