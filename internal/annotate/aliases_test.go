package annotate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliases_CleanMerchantName(t *testing.T) {
	aliases, err := NewAliases([]AliasRule{
		{Match: "NETFLIX.COM", Name: "Netflix"},
		{Match: `^spotify\b`, Name: "Spotify", IsRegex: true},
		{Match: "AMZN PRIME", Name: "Amazon Prime"},
		{Match: "amzn", Name: "Amazon", IsRegex: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, aliases.Len())

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "exact match ignores case", raw: "netflix.com", want: "Netflix"},
		{name: "exact match trims", raw: "  NETFLIX.COM ", want: "Netflix"},
		{name: "regex is case-insensitive", raw: "SPOTIFY USA", want: "Spotify"},
		{name: "first rule wins", raw: "AMZN PRIME", want: "Amazon Prime"},
		{name: "later regex rule", raw: "AMZN MKTP US", want: "Amazon"},
		{name: "exact rules do not match substrings", raw: "NETFLIX.COM/BILL", want: ""},
		{name: "no match", raw: "Corner Bakery", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := aliases.CleanMerchantName(context.Background(), tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewAliases_InvalidRules(t *testing.T) {
	tests := []struct {
		name string
		rule AliasRule
	}{
		{name: "missing match", rule: AliasRule{Name: "Netflix"}},
		{name: "missing name", rule: AliasRule{Match: "NETFLIX"}},
		{name: "bad regex", rule: AliasRule{Match: "([a-z", Name: "Broken", IsRegex: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAliases([]AliasRule{tt.rule})
			assert.ErrorIs(t, err, ErrInvalidRule)
		})
	}
}

func TestAliases_CancelledContext(t *testing.T) {
	aliases, err := NewAliases(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = aliases.CleanMerchantName(ctx, "Netflix")
	assert.ErrorIs(t, err, context.Canceled)
}
