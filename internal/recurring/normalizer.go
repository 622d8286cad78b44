// Package recurring detects merchants that bill on a regular cadence.
//
// Everything in this package is a pure function of its inputs: transactions
// go in, detections come out, and nothing is cached between calls.
package recurring

import "strings"

// UnknownMerchant is the grouping key for transactions without a merchant.
const UnknownMerchant = "Unknown"

// NormalizeMerchant turns a raw merchant string into a grouping key.
//
// Only surrounding whitespace is removed. Spelling variants of the same real
// merchant ("NETFLIX.COM" and "Netflix") stay in separate groups.
func NormalizeMerchant(raw string) string {
	key := strings.TrimSpace(raw)
	if key == "" {
		return UnknownMerchant
	}
	return key
}
