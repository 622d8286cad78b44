// Package model defines the domain types shared across the recurring pattern engine.
package model

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidTransaction is returned when a raw record cannot be turned into a Transaction.
var ErrInvalidTransaction = errors.New("invalid transaction")

// Transaction is a single, validated entry from a user's transaction history.
type Transaction struct {
	Date     time.Time
	ID       string
	UserID   string
	Merchant string // Raw merchant string, empty when the source had none
	Category string
	Amount   float64 // Signed; debits are negative in most sources
}

// Day returns the transaction date truncated to a UTC calendar day.
func (t Transaction) Day() time.Time {
	return CalendarDay(t.Date)
}

// CalendarDay truncates a timestamp to midnight UTC of its UTC calendar date.
func CalendarDay(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RawTransaction is the loosely typed record accepted at the ingestion boundary.
// Sources disagree on nullability and on whether amounts are numbers or strings,
// so everything is parsed once by ParseTransaction.
type RawTransaction struct {
	Merchant        *string   `json:"merchant"`
	Category        *string   `json:"category"`
	ID              string    `json:"id"`
	TransactionDate string    `json:"transaction_date"`
	Amount          RawAmount `json:"amount"`
}

// RawAmount holds an amount that may arrive as a JSON number or a quoted string.
type RawAmount string

// UnmarshalJSON accepts both 15.49 and "15.49".
func (a *RawAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	*a = RawAmount(strings.Trim(string(data), `"`))
	return nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses the ISO date and date-time forms seen in transaction feeds.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", ErrInvalidTransaction, s)
}

// ParseTransaction validates a raw record for the given user.
func ParseTransaction(userID string, raw RawTransaction) (Transaction, error) {
	if strings.TrimSpace(raw.ID) == "" {
		return Transaction{}, fmt.Errorf("%w: missing id", ErrInvalidTransaction)
	}
	if strings.TrimSpace(userID) == "" {
		return Transaction{}, fmt.Errorf("%w: missing user id", ErrInvalidTransaction)
	}

	date, err := ParseDate(raw.TransactionDate)
	if err != nil {
		return Transaction{}, fmt.Errorf("transaction %s: %w", raw.ID, err)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(string(raw.Amount)))
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: transaction %s has bad amount %q", ErrInvalidTransaction, raw.ID, raw.Amount)
	}

	txn := Transaction{
		ID:     raw.ID,
		UserID: userID,
		Date:   date,
		Amount: amount.InexactFloat64(),
	}
	if raw.Merchant != nil {
		txn.Merchant = *raw.Merchant
	}
	if raw.Category != nil {
		txn.Category = strings.TrimSpace(*raw.Category)
	}
	return txn, nil
}
