// Package annotate provides merchant annotators that run locally from
// user-configured alias rules.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRule is returned for an alias rule that cannot be evaluated.
var ErrInvalidRule = errors.New("invalid alias rule")

// AliasRule maps raw merchant strings onto a display name.
type AliasRule struct {
	Match   string `mapstructure:"match"`
	Name    string `mapstructure:"name"`
	IsRegex bool   `mapstructure:"regex"`
}

// Aliases implements service.MerchantAnnotator from a fixed rule list.
// Rules are evaluated in order and the first match wins.
type Aliases struct {
	compiled map[int]*regexp.Regexp
	rules    []AliasRule
}

// NewAliases validates and compiles rules.
func NewAliases(rules []AliasRule) (*Aliases, error) {
	a := &Aliases{
		rules:    rules,
		compiled: make(map[int]*regexp.Regexp),
	}

	for i, rule := range rules {
		if strings.TrimSpace(rule.Match) == "" || strings.TrimSpace(rule.Name) == "" {
			return nil, fmt.Errorf("%w: rule %d needs both match and name", ErrInvalidRule, i)
		}
		if !rule.IsRegex {
			continue
		}
		re, err := regexp.Compile("(?i)" + rule.Match)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d: %w", ErrInvalidRule, i, err)
		}
		a.compiled[i] = re
	}

	return a, nil
}

// Len returns the number of rules.
func (a *Aliases) Len() int {
	return len(a.rules)
}

// CleanMerchantName returns the alias for rawMerchant, or "" when no rule matches.
func (a *Aliases) CleanMerchantName(ctx context.Context, rawMerchant string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	merchant := strings.TrimSpace(rawMerchant)
	for i, rule := range a.rules {
		if re, ok := a.compiled[i]; ok {
			if re.MatchString(merchant) {
				return rule.Name, nil
			}
			continue
		}
		// Exact match (case-insensitive)
		if strings.EqualFold(strings.TrimSpace(rule.Match), merchant) {
			return rule.Name, nil
		}
	}
	return "", nil
}
