package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionTypeCardPayment tags journal entries created by card payments.
const TransactionTypeCardPayment = "card payment"

// Transaction is a journal entry in the remote transaction service.
// A draft has a zero ID; the service assigns one on creation.
type Transaction struct {
	ID             uuid.UUID
	Date           time.Time
	Amount         decimal.Decimal
	Type           string
	CustomerID     uuid.UUID
	AccountID      uuid.UUID
	AccountBalance decimal.Decimal
	CardID         uuid.UUID
}

// NewCardPaymentDraft builds the journal entry for one allocation share.
func NewCardPaymentDraft(cardID uuid.UUID, share AllocationShare, now time.Time) Transaction {
	return Transaction{
		Date:           now.UTC(),
		Amount:         share.Share,
		Type:           TransactionTypeCardPayment,
		CustomerID:     share.Account.CustomerID,
		AccountID:      share.Account.ID,
		AccountBalance: share.ResultingBalance,
		CardID:         cardID,
	}
}
