package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cadence/internal/common"
	"github.com/Veraticus/cadence/internal/storage"
)

func TestDecodeTransactions(t *testing.T) {
	payload := `[
		{"id": "t1", "merchant": "Netflix", "amount": -15.49, "category": "Streaming", "transaction_date": "2025-01-03"},
		{"id": "t2", "merchant": null, "amount": "12.00", "category": null, "transaction_date": "2025-01-04 10:00:00"},
		{"id": "t3", "merchant": "Broken", "amount": "n/a", "transaction_date": "2025-01-05"}
	]`

	txns, err := decodeTransactions(strings.NewReader(payload), "alice")
	require.NoError(t, err)
	require.Len(t, txns, 2, "invalid rows are skipped")
	assert.Equal(t, "alice", txns[0].UserID)
	assert.Empty(t, txns[1].Merchant)

	_, err = decodeTransactions(strings.NewReader(`{"id": "not an array"}`), "alice")
	assert.Error(t, err)
}

func TestExpandFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"jan.qfx", "feb.qfx", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	files, err := expandFiles([]string{filepath.Join(dir, "*.qfx")})
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = expandFiles([]string{filepath.Join(dir, "*.ofx")})
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestLifecycleError(t *testing.T) {
	var userErr *common.UserError

	err := lifecycleError(storage.ErrSubscriptionNotFound)
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "no subscription with that id", userErr.UserMessage)

	err = lifecycleError(common.ErrAlreadyCancelled)
	require.ErrorAs(t, err, &userErr)
	assert.ErrorIs(t, err, common.ErrAlreadyCancelled)

	plain := os.ErrClosed
	assert.Equal(t, plain, lifecycleError(plain))
}
