// Package service defines the interfaces between the engine and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/cadence/internal/model"
)

// TransactionSource is the read side of the transaction storage collaborator.
type TransactionSource interface {
	// GetUserTransactions returns at most limit of the user's most recent
	// transactions. No ordering is guaranteed.
	GetUserTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error)
}

// UserLister enumerates the users a batch run should cover.
type UserLister interface {
	GetUserIDs(ctx context.Context) ([]string, error)
}

// PatternStore persists recurring patterns keyed by (user, merchant).
type PatternStore interface {
	UpsertRecurringPattern(ctx context.Context, pattern *model.RecurringPattern) error
	GetRecurringPattern(ctx context.Context, userID, merchant string) (*model.RecurringPattern, error)
	GetRecurringPatterns(ctx context.Context, userID string) ([]model.RecurringPattern, error)
}

// SubscriptionStore persists tracked subscriptions keyed by id.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, sub *model.CardSubscription) error
	UpdateSubscription(ctx context.Context, sub *model.CardSubscription) error
	GetSubscription(ctx context.Context, id string) (*model.CardSubscription, error)
	GetSubscriptions(ctx context.Context, userID string) ([]model.CardSubscription, error)
}

// Storage is everything the SQLite backend provides.
type Storage interface {
	TransactionSource
	UserLister
	PatternStore
	SubscriptionStore

	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	Migrate(ctx context.Context) error
	Close() error
}

// Notifier delivers reminder events to the user.
type Notifier interface {
	SendReminder(ctx context.Context, event model.ReminderEvent) error
}

// MerchantAnnotator is the opaque AI service that cleans up raw merchant strings.
type MerchantAnnotator interface {
	CleanMerchantName(ctx context.Context, rawMerchant string) (string, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
