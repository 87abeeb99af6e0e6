package service

import (
	"github.com/shopspring/decimal"

	"github.com/bibbank/debitcard/internal/domain/model"
)

// PlanAllocation splits amount across accounts, which must already be in
// funding order (see OrderAccounts). An account participates while the
// cumulative balance of the accounts before it is still below amount, so the
// account that crosses the threshold is included and the rest are not.
//
// Each participant gives min(remaining, balance). When the accounts cannot
// cover amount, every participant is drained to zero and the plan reports
// the difference as Shortfall.
func PlanAllocation(accounts []model.Account, amount decimal.Decimal) model.AllocationPlan {
	plan := model.AllocationPlan{Requested: amount}
	if !amount.IsPositive() {
		return plan
	}

	cumulative := decimal.Zero
	remaining := amount
	for _, acc := range accounts {
		if cumulative.GreaterThanOrEqual(amount) {
			break
		}
		if !acc.IsEligible() {
			continue
		}
		cumulative = cumulative.Add(acc.Balance)

		share := decimal.Min(remaining, acc.Balance)
		remaining = remaining.Sub(share)

		plan.Shares = append(plan.Shares, model.AllocationShare{
			Account:          acc,
			Share:            share,
			ResultingBalance: acc.Balance.Sub(share),
		})
	}

	return plan
}
