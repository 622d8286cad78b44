// Package engine runs recurring pattern detection for users and persists the results.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/cadence/internal/common"
	"github.com/Veraticus/cadence/internal/model"
	"github.com/Veraticus/cadence/internal/recurring"
	"github.com/Veraticus/cadence/internal/service"
)

// Engine detects recurring patterns in a user's history and upserts them.
type Engine struct {
	source   service.TransactionSource
	patterns service.PatternStore
	config   Config
}

// Config holds configuration options for the engine.
type Config struct {
	Retry            service.RetryOptions
	TransactionLimit int
	Concurrency      int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		TransactionLimit: 500,
		Concurrency:      4,
		Retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// New creates an engine with the default configuration.
func New(source service.TransactionSource, patterns service.PatternStore) *Engine {
	return NewWithConfig(source, patterns, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(source service.TransactionSource, patterns service.PatternStore, config Config) *Engine {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &Engine{
		source:   source,
		patterns: patterns,
		config:   config,
	}
}

// PatternSummary describes one detected pattern.
type PatternSummary struct {
	Merchant         string
	Frequency        model.Frequency
	Confidence       float64
	TransactionCount int
}

// MerchantError records a merchant whose pattern could not be persisted.
type MerchantError struct {
	Err      error
	Merchant string
}

func (e MerchantError) Error() string {
	return fmt.Sprintf("%s: %v", e.Merchant, e.Err)
}

func (e MerchantError) Unwrap() error {
	return e.Err
}

// Summary is the result of one detection run for a user.
type Summary struct {
	UserID            string
	Patterns          []PatternSummary
	Errors            []MerchantError
	PatternsDetected  int
	PatternsPersisted int
	Duration          time.Duration
}

// Run detects and persists recurring patterns for a single user. Failing to
// load transactions is an error; failing to persist a single merchant is
// recorded in the summary and the run continues.
func (e *Engine) Run(ctx context.Context, userID string) (*Summary, error) {
	start := time.Now()

	txns, err := e.source.GetUserTransactions(ctx, userID, e.config.TransactionLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s: %w", common.ErrInputUnavailable, userID, err)
	}

	detections := recurring.Detect(userID, txns)

	summary := &Summary{
		UserID:           userID,
		PatternsDetected: len(detections),
		Patterns:         make([]PatternSummary, 0, len(detections)),
	}
	for _, d := range detections {
		summary.Patterns = append(summary.Patterns, PatternSummary{
			Merchant:         d.Pattern.Merchant,
			Frequency:        d.Pattern.Frequency,
			Confidence:       d.Pattern.Confidence,
			TransactionCount: d.TransactionCount,
		})
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(e.config.Concurrency)

	for _, d := range detections {
		pattern := d.Pattern
		g.Go(func() error {
			err := e.persist(ctx, &pattern)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				common.LogError(err, "Failed to persist recurring pattern", common.Fields{
					"user_id":  userID,
					"merchant": pattern.Merchant,
				})
				summary.Errors = append(summary.Errors, MerchantError{Merchant: pattern.Merchant, Err: err})
				return nil
			}
			summary.PatternsPersisted++
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are collected above

	sort.Slice(summary.Errors, func(i, j int) bool {
		return summary.Errors[i].Merchant < summary.Errors[j].Merchant
	})
	summary.Duration = time.Since(start)

	slog.Info("Detection run complete",
		"user_id", userID,
		"transactions", len(txns),
		"detected", summary.PatternsDetected,
		"persisted", summary.PatternsPersisted,
		"failed", len(summary.Errors),
		"duration", summary.Duration)

	return summary, nil
}

func (e *Engine) persist(ctx context.Context, pattern *model.RecurringPattern) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := common.WithRetry(ctx, func() error {
		return e.patterns.UpsertRecurringPattern(ctx, pattern)
	}, e.config.Retry)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrPersistFailed, err)
	}
	return nil
}

// UserResult is the outcome of one user's run within RunUsers.
type UserResult struct {
	Summary *Summary
	Err     error
	UserID  string
}

// RunUsers runs detection for each user concurrently. A user whose run fails
// does not stop the others. The progress callback, if set, is invoked once per
// finished user and may be called from multiple goroutines.
func (e *Engine) RunUsers(ctx context.Context, userIDs []string, progress func(UserResult)) ([]UserResult, error) {
	results := make([]UserResult, len(userIDs))

	g := new(errgroup.Group)
	g.SetLimit(e.config.Concurrency)

	for i, userID := range userIDs {
		g.Go(func() error {
			result := UserResult{UserID: userID}
			if err := ctx.Err(); err != nil {
				result.Err = err
			} else {
				result.Summary, result.Err = e.Run(ctx, userID)
			}
			results[i] = result
			if progress != nil {
				progress(result)
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	if err := ctx.Err(); err != nil && len(errs) > 0 {
		return results, fmt.Errorf("run interrupted: %w", errors.Join(errs...))
	}
	return results, errors.Join(errs...)
}
