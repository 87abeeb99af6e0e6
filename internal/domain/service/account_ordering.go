package service

import (
	"slices"

	"github.com/bibbank/debitcard/internal/domain/model"
)

// OrderAccounts returns the accounts that can fund a payment in the order
// they are drawn from: the primary account first, then by ascending
// association date. Accounts with a non-positive balance are dropped.
// Accounts with equal keys keep the order the account service returned.
func OrderAccounts(accounts []model.Account) []model.Account {
	eligible := make([]model.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.IsEligible() {
			eligible = append(eligible, a)
		}
	}

	slices.SortStableFunc(eligible, compareFundingPriority)
	return eligible
}

func compareFundingPriority(a, b model.Account) int {
	if a.IsPrimary != b.IsPrimary {
		if a.IsPrimary {
			return -1
		}
		return 1
	}
	return a.AssociationDate.Compare(b.AssociationDate)
}
