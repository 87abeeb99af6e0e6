package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/debitcard/internal/domain/model"
)

const methodCreateTransaction = "/bib.transaction.v1.TransactionService/CreateTransaction"

type transactionMsg struct {
	ID              string          `json:"id,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type"`
	CustomerID      string          `json:"customer_id"`
	AccountID       string          `json:"account_id"`
	AccountAmount   decimal.Decimal `json:"account_amount"`
	CardID          string          `json:"card_id"`
}

// TransactionClient calls the remote transaction service.
type TransactionClient struct {
	conn *Conn
}

// NewTransactionClient creates a new TransactionClient over conn.
func NewTransactionClient(conn *Conn) *TransactionClient {
	return &TransactionClient{conn: conn}
}

// Create records draft and returns it with the id the service assigned.
func (c *TransactionClient) Create(ctx context.Context, draft model.Transaction) (model.Transaction, error) {
	req := transactionMsg{
		TransactionDate: draft.Date,
		Amount:          draft.Amount,
		Type:            draft.Type,
		CustomerID:      draft.CustomerID.String(),
		AccountID:       draft.AccountID.String(),
		AccountAmount:   draft.AccountBalance,
		CardID:          draft.CardID.String(),
	}

	var resp transactionMsg
	if err := c.conn.invoke(ctx, methodCreateTransaction, req, &resp); err != nil {
		return model.Transaction{}, fmt.Errorf("create transaction for account %s: %w", draft.AccountID, err)
	}

	id, err := uuid.Parse(resp.ID)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid transaction id %q: %w", resp.ID, err)
	}

	created := draft
	created.ID = id
	if !resp.TransactionDate.IsZero() {
		created.Date = resp.TransactionDate
	}
	return created, nil
}
