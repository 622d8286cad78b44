package model

import (
	"errors"
	"time"
)

// SubscriptionStatus is the lifecycle state of a tracked subscription.
type SubscriptionStatus string

const (
	// StatusActive means the subscription is billing and counted in totals.
	StatusActive SubscriptionStatus = "active"
	// StatusPaused means the user has paused tracking; it can be resumed.
	StatusPaused SubscriptionStatus = "paused"
	// StatusCancelled is terminal. Renewed billing is detected as a new record.
	StatusCancelled SubscriptionStatus = "cancelled"
)

// IsValid reports whether s is a known status.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to SubscriptionStatus) bool {
	switch from {
	case StatusActive:
		return to == StatusPaused || to == StatusCancelled
	case StatusPaused:
		return to == StatusActive || to == StatusCancelled
	}
	return false
}

// CardSubscription is a recurring pattern promoted to a tracked subscription.
type CardSubscription struct {
	NextExpectedDate         time.Time
	LastChargeDate           time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time
	UsageSignal              *float64 // Optional usage level in [0,1]; nil when unknown
	ID                       string
	UserID                   string
	MerchantName             string
	AIMerchantName           string
	Frequency                Frequency
	Status                   SubscriptionStatus
	AmountCents              int64
	LastReminderCycle        int64 // Cycle index of the last reminder sent; 0 when none
	Confidence               float64
	ZombieScore              float64
	CancelReminderDaysBefore int
	IsConfirmed              bool
	CancelReminderEnabled    bool
}

// DisplayName prefers the AI-cleaned merchant name when one is available.
func (s *CardSubscription) DisplayName() string {
	if s.AIMerchantName != "" {
		return s.AIMerchantName
	}
	return s.MerchantName
}

// Validate checks the invariants of a subscription before it is persisted.
func (s *CardSubscription) Validate() error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.UserID == "" {
		return errors.New("user id is required")
	}
	if s.MerchantName == "" {
		return errors.New("merchant name is required")
	}
	if !s.Status.IsValid() {
		return errors.New("status must be active, paused or cancelled")
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return errors.New("confidence must be between 0 and 1")
	}
	if s.ZombieScore < 0 || s.ZombieScore > 1 {
		return errors.New("zombie score must be between 0 and 1")
	}
	if s.CancelReminderDaysBefore < 0 {
		return errors.New("reminder days before cannot be negative")
	}
	if s.UsageSignal != nil && (*s.UsageSignal < 0 || *s.UsageSignal > 1) {
		return errors.New("usage signal must be between 0 and 1")
	}
	return nil
}

// ReminderEvent is handed to the notification collaborator when a renewal is near.
type ReminderEvent struct {
	DueDate        time.Time
	SubscriptionID string
	UserID         string
	MerchantName   string
	AmountCents    int64
	Cycle          int64
	DaysUntilDue   int
}
