package model

import (
	"errors"
	"time"
)

// RecurringPattern is the persisted record of a merchant detected as billing on a cadence.
// It is unique per (UserID, Merchant) and always holds the latest computed statistics.
type RecurringPattern struct {
	LastOccurrence time.Time
	CreatedAt      time.Time
	UserID         string
	Merchant       string
	Category       string
	Frequency      Frequency
	AvgAmount      float64 // Mean of absolute amounts
	Confidence     float64
	ExpectedDate   int // Day of month of the most recent occurrence
}

// Validate checks the invariants of a pattern before it is persisted.
func (p *RecurringPattern) Validate() error {
	if p.UserID == "" {
		return errors.New("user id is required")
	}
	if p.Merchant == "" {
		return errors.New("merchant is required")
	}
	if !p.Frequency.IsValid() {
		return errors.New("frequency must be weekly, monthly, quarterly or yearly")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return errors.New("confidence must be between 0 and 1")
	}
	if p.ExpectedDate < 1 || p.ExpectedDate > 31 {
		return errors.New("expected date must be between 1 and 31")
	}
	if p.AvgAmount < 0 {
		return errors.New("average amount cannot be negative")
	}
	if p.LastOccurrence.IsZero() {
		return errors.New("last occurrence is required")
	}
	return nil
}
