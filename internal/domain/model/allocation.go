package model

import "github.com/shopspring/decimal"

// AllocationShare is the portion of a payment drawn from one account.
// ResultingBalance is always Account.Balance minus Share.
type AllocationShare struct {
	Account          Account
	Share            decimal.Decimal
	ResultingBalance decimal.Decimal
}

// UpdatedAccount returns the account snapshot to write back after the draw.
func (s AllocationShare) UpdatedAccount() Account {
	return s.Account.WithBalance(s.ResultingBalance)
}

// AllocationPlan is the ordered list of shares for one payment.
type AllocationPlan struct {
	Requested decimal.Decimal
	Shares    []AllocationShare
}

// Total is the sum of all shares, at most Requested.
func (p AllocationPlan) Total() decimal.Decimal {
	total := decimal.Zero
	for _, s := range p.Shares {
		total = total.Add(s.Share)
	}
	return total
}

// Shortfall is the part of Requested not covered by any account.
func (p AllocationPlan) Shortfall() decimal.Decimal {
	return p.Requested.Sub(p.Total())
}
