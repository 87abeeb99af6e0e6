package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/debitcard/internal/domain/model"
)

// Account service methods.
const (
	accountService           = "bib.account.v1.AccountService"
	methodGetAccount         = "/" + accountService + "/GetAccount"
	methodListAccountsByCard = "/" + accountService + "/ListAccountsByCard"
	methodUpdateAccount      = "/" + accountService + "/UpdateAccount"
	methodMarkPrimaryAccount = "/" + accountService + "/MarkPrimaryAccount"
)

type accountIDReq struct {
	AccountID string `json:"account_id"`
}

type listAccountsByCardReq struct {
	DebitCardID string `json:"debit_card_id"`
}

type listAccountsResp struct {
	Accounts []accountMsg `json:"accounts"`
}

type updateAccountReq struct {
	Account accountMsg `json:"account"`
}

// accountMsg is the account as the account service serialises it.
type accountMsg struct {
	ID                   string          `json:"id"`
	NumberAccount        string          `json:"number_account"`
	Amount               decimal.Decimal `json:"amount"`
	EndDate              *time.Time      `json:"end_date,omitempty"`
	CustomerID           string          `json:"customer_id"`
	Type                 string          `json:"type"`
	NumberOfTransactions int             `json:"number_of_transactions"`
	Commission           decimal.Decimal `json:"commission"`
	TransactionLimit     int             `json:"transaction_limit"`
	DebitCardID          string          `json:"debit_card_id,omitempty"`
	IsPrimaryAccount     bool            `json:"is_primary_account"`
	AssociationDate      *time.Time      `json:"association_date,omitempty"`
	CreationDate         time.Time       `json:"creation_date"`
}

// AccountClient calls the remote account service.
type AccountClient struct {
	conn *Conn
}

// NewAccountClient creates a new AccountClient over conn.
func NewAccountClient(conn *Conn) *AccountClient {
	return &AccountClient{conn: conn}
}

// Get fetches one account. Returns model.ErrAccountNotFound when the
// service does not know accountID.
func (c *AccountClient) Get(ctx context.Context, accountID uuid.UUID) (model.Account, error) {
	var resp accountMsg
	if err := c.conn.invoke(ctx, methodGetAccount, accountIDReq{AccountID: accountID.String()}, &resp); err != nil {
		return model.Account{}, fmt.Errorf("get account %s: %w", accountID, mapAccountError(err))
	}
	return resp.toModel()
}

// ListByCard fetches every account linked to cardID.
func (c *AccountClient) ListByCard(ctx context.Context, cardID uuid.UUID) ([]model.Account, error) {
	var resp listAccountsResp
	if err := c.conn.invoke(ctx, methodListAccountsByCard, listAccountsByCardReq{DebitCardID: cardID.String()}, &resp); err != nil {
		return nil, fmt.Errorf("list accounts for card %s: %w", cardID, err)
	}

	accounts := make([]model.Account, 0, len(resp.Accounts))
	for _, msg := range resp.Accounts {
		acc, err := msg.toModel()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// Update writes account back and returns the stored version.
func (c *AccountClient) Update(ctx context.Context, account model.Account) (model.Account, error) {
	var resp accountMsg
	if err := c.conn.invoke(ctx, methodUpdateAccount, updateAccountReq{Account: fromModel(account)}, &resp); err != nil {
		return model.Account{}, fmt.Errorf("update account %s: %w", account.ID, mapAccountError(err))
	}
	return resp.toModel()
}

// MarkPrimary flags accountID as the primary account of its card.
func (c *AccountClient) MarkPrimary(ctx context.Context, accountID uuid.UUID) (model.Account, error) {
	var resp accountMsg
	if err := c.conn.invoke(ctx, methodMarkPrimaryAccount, accountIDReq{AccountID: accountID.String()}, &resp); err != nil {
		return model.Account{}, fmt.Errorf("mark primary account %s: %w", accountID, mapAccountError(err))
	}
	return resp.toModel()
}

func mapAccountError(err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", model.ErrAccountNotFound, status.Convert(err).Message())
	}
	return err
}

func (m accountMsg) toModel() (model.Account, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return model.Account{}, fmt.Errorf("invalid account id %q: %w", m.ID, err)
	}

	acc := model.Account{
		ID:                   id,
		NumberAccount:        m.NumberAccount,
		Type:                 m.Type,
		Balance:              m.Amount,
		IsPrimary:            m.IsPrimaryAccount,
		CreationDate:         m.CreationDate,
		EndDate:              m.EndDate,
		NumberOfTransactions: m.NumberOfTransactions,
		TransactionLimit:     m.TransactionLimit,
		Commission:           m.Commission,
	}
	if m.CustomerID != "" {
		if acc.CustomerID, err = uuid.Parse(m.CustomerID); err != nil {
			return model.Account{}, fmt.Errorf("invalid customer id %q: %w", m.CustomerID, err)
		}
	}
	if m.DebitCardID != "" {
		cardID, err := uuid.Parse(m.DebitCardID)
		if err != nil {
			return model.Account{}, fmt.Errorf("invalid debit card id %q: %w", m.DebitCardID, err)
		}
		acc.DebitCardID = &cardID
	}
	if m.AssociationDate != nil {
		acc.AssociationDate = *m.AssociationDate
	}
	return acc, nil
}

func fromModel(a model.Account) accountMsg {
	msg := accountMsg{
		ID:                   a.ID.String(),
		NumberAccount:        a.NumberAccount,
		Amount:               a.Balance,
		EndDate:              a.EndDate,
		Type:                 a.Type,
		NumberOfTransactions: a.NumberOfTransactions,
		Commission:           a.Commission,
		TransactionLimit:     a.TransactionLimit,
		IsPrimaryAccount:     a.IsPrimary,
		CreationDate:         a.CreationDate,
	}
	if a.CustomerID != uuid.Nil {
		msg.CustomerID = a.CustomerID.String()
	}
	if a.DebitCardID != nil {
		msg.DebitCardID = a.DebitCardID.String()
	}
	if !a.AssociationDate.IsZero() {
		d := a.AssociationDate
		msg.AssociationDate = &d
	}
	return msg
}
