package lifecycle

import (
	"math"
	"time"

	"github.com/Veraticus/cadence/internal/model"
)

const (
	secondsPerDay = 24 * 60 * 60

	// defaultCadenceDays is assumed for subscriptions whose frequency is not recognized.
	defaultCadenceDays = 30.0
)

// ZombieScore estimates how likely a subscription is to be forgotten or unused.
//
// The score stays at 0 while the last charge is within one expected cycle.
// Past that it grows as 1-e^-(overdue cycles), and a usage signal scales it
// between 0.75x (heavily used) and 1.25x (unused). The result is clamped to [0,1].
func ZombieScore(sub model.CardSubscription, now time.Time) float64 {
	if sub.LastChargeDate.IsZero() {
		return 0
	}

	cadence := sub.Frequency.CadenceDays()
	if cadence == 0 {
		cadence = defaultCadenceDays
	}

	elapsed := now.Sub(sub.LastChargeDate).Hours() / 24
	ratio := elapsed / cadence
	if ratio <= 1 {
		return 0
	}

	score := 1 - math.Exp(-(ratio - 1))
	if sub.UsageSignal != nil {
		usage := clamp(*sub.UsageSignal)
		score *= 0.75 + 0.5*(1-usage)
	}

	return math.Round(clamp(score)*1e4) / 1e4
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
