package model

import "time"

// Frequency is the billing cadence bucket of a recurring pattern.
type Frequency string

const (
	// FrequencyWeekly covers mean intervals up to 10 days.
	FrequencyWeekly Frequency = "weekly"
	// FrequencyMonthly covers mean intervals above 10 and up to 35 days.
	FrequencyMonthly Frequency = "monthly"
	// FrequencyQuarterly covers mean intervals above 35 and up to 100 days.
	FrequencyQuarterly Frequency = "quarterly"
	// FrequencyYearly covers mean intervals above 100 days.
	FrequencyYearly Frequency = "yearly"
)

// Upper bounds (inclusive) of the frequency ladder, in days.
const (
	WeeklyMaxInterval    = 10.0
	MonthlyMaxInterval   = 35.0
	QuarterlyMaxInterval = 100.0
)

// ClassifyFrequency maps a mean interval in days onto a frequency bucket.
// A value sitting exactly on a boundary belongs to the higher frequency.
func ClassifyFrequency(meanInterval float64) Frequency {
	switch {
	case meanInterval <= WeeklyMaxInterval:
		return FrequencyWeekly
	case meanInterval <= MonthlyMaxInterval:
		return FrequencyMonthly
	case meanInterval <= QuarterlyMaxInterval:
		return FrequencyQuarterly
	default:
		return FrequencyYearly
	}
}

// IsValid reports whether f is one of the known buckets.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// CadenceDays is the nominal length of one billing cycle. Unknown values return 0.
func (f Frequency) CadenceDays() float64 {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyMonthly:
		return 30
	case FrequencyQuarterly:
		return 91
	case FrequencyYearly:
		return 365
	}
	return 0
}

// Next returns the expected date of the charge following last. Month-based
// cadences keep the billing day but clamp it to the end of shorter months, so
// a charge on Jan 31 is next expected on the last day of February.
func (f Frequency) Next(last time.Time) time.Time {
	switch f {
	case FrequencyWeekly:
		return last.AddDate(0, 0, 7)
	case FrequencyQuarterly:
		return addMonths(last, 3)
	case FrequencyYearly:
		return addMonths(last, 12)
	default:
		return addMonths(last, 1)
	}
}

func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(d, lastDay)-1)
}
