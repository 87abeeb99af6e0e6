package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a snapshot of a bank account owned by the remote account
// service. The card service reads it, derives a new balance and writes it
// back; it never stores accounts itself.
type Account struct {
	ID                   uuid.UUID
	NumberAccount        string
	Type                 string
	CustomerID           uuid.UUID
	DebitCardID          *uuid.UUID
	Balance              decimal.Decimal
	IsPrimary            bool
	AssociationDate      time.Time
	CreationDate         time.Time
	EndDate              *time.Time
	NumberOfTransactions int
	TransactionLimit     int
	Commission           decimal.Decimal
}

// WithBalance returns a copy of the account carrying balance.
func (a Account) WithBalance(balance decimal.Decimal) Account {
	a.Balance = balance
	if a.DebitCardID != nil {
		id := *a.DebitCardID
		a.DebitCardID = &id
	}
	return a
}

// IsEligible reports whether the account can fund a payment.
func (a Account) IsEligible() bool {
	return a.Balance.IsPositive()
}
