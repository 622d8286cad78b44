package recurring

import (
	"sort"

	"github.com/Veraticus/cadence/internal/model"
)

// MinTransactions is the least evidence needed to judge a cadence: three
// charges give two intervals to compare.
const MinTransactions = 3

// MerchantGroup holds one merchant's transactions in ascending date order.
type MerchantGroup struct {
	Key          string
	Transactions []model.Transaction
}

// GroupTransactions partitions transactions by normalized merchant key, sorts
// each group by date and drops groups with fewer than MinTransactions members.
// Groups are returned ordered by key.
func GroupTransactions(transactions []model.Transaction) []MerchantGroup {
	byKey := make(map[string][]model.Transaction)
	for _, txn := range transactions {
		key := NormalizeMerchant(txn.Merchant)
		byKey[key] = append(byKey[key], txn)
	}

	groups := make([]MerchantGroup, 0, len(byKey))
	for key, txns := range byKey {
		if len(txns) < MinTransactions {
			continue
		}
		sort.SliceStable(txns, func(i, j int) bool {
			if txns[i].Date.Equal(txns[j].Date) {
				return txns[i].ID < txns[j].ID
			}
			return txns[i].Date.Before(txns[j].Date)
		})
		groups = append(groups, MerchantGroup{Key: key, Transactions: txns})
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Key < groups[j].Key
	})
	return groups
}

// Latest returns the most recent transaction of the group.
func (g MerchantGroup) Latest() model.Transaction {
	return g.Transactions[len(g.Transactions)-1]
}
