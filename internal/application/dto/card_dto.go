package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/debitcard/internal/domain/model"
)

// RegisterCardRequest is the input DTO for registering a debit card.
// CardNumber is the full PAN; only its last four digits are kept.
type RegisterCardRequest struct {
	CardNumber string    `json:"card_number"`
	Expiry     string    `json:"expiry"`
	CustomerID uuid.UUID `json:"customer_id"`
}

// UpdateCardRequest is the input DTO for updating a debit card.
// An empty CardNumber keeps the current number.
type UpdateCardRequest struct {
	CardNumber string    `json:"card_number,omitempty"`
	Expiry     string    `json:"expiry,omitempty"`
	Status     string    `json:"status"`
	CardID     uuid.UUID `json:"card_id"`
	Version    int       `json:"version"`
}

// DeleteCardRequest is the input DTO for deleting a debit card.
type DeleteCardRequest struct {
	CardID uuid.UUID `json:"card_id"`
}

// GetCardRequest is the input DTO for retrieving a card.
type GetCardRequest struct {
	CardID uuid.UUID `json:"card_id"`
}

// ListCardsRequest is the input DTO for listing cards.
type ListCardsRequest struct {
	PageSize int `json:"page_size"`
	Offset   int `json:"offset"`
}

// ListCardsResponse is the output DTO for listing cards.
type ListCardsResponse struct {
	Cards      []CardResponse `json:"cards"`
	TotalCount int            `json:"total_count"`
}

// CardResponse is the general output DTO for card details.
type CardResponse struct {
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	PrimaryAccountID *uuid.UUID `json:"primary_account_id,omitempty"`
	Status           string     `json:"status"`
	LastFour         string     `json:"last_four"`
	ExpiryMonth      string     `json:"expiry_month"`
	ExpiryYear       string     `json:"expiry_year"`
	ID               uuid.UUID  `json:"id"`
	CustomerID       uuid.UUID  `json:"customer_id"`
	Version          int        `json:"version"`
}

// AssociatePrimaryAccountRequest is the input DTO for both association paths.
type AssociatePrimaryAccountRequest struct {
	AccountID uuid.UUID `json:"account_id"`
}

// GetPrimaryAccountBalanceRequest is the input DTO for reading the primary balance.
type GetPrimaryAccountBalanceRequest struct {
	CardID uuid.UUID `json:"card_id"`
}

// PrimaryAccountBalanceResponse is the output DTO for the primary balance.
type PrimaryAccountBalanceResponse struct {
	Balance   decimal.Decimal `json:"balance"`
	CardID    uuid.UUID       `json:"card_id"`
	AccountID uuid.UUID       `json:"account_id"`
}

// PayWithCardRequest is the input DTO for a split payment.
type PayWithCardRequest struct {
	Amount decimal.Decimal `json:"amount"`
	CardID uuid.UUID       `json:"card_id"`
}

// AllocationResponse describes the draw on one account.
type AllocationResponse struct {
	Share         decimal.Decimal `json:"share"`
	Balance       decimal.Decimal `json:"balance"`
	NumberAccount string          `json:"number_account"`
	AccountID     uuid.UUID       `json:"account_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}

// PayWithCardResponse lists the updated accounts in the order they were drawn.
// TotalDrawn is below Requested when the accounts could not cover the payment.
type PayWithCardResponse struct {
	Requested   decimal.Decimal      `json:"requested"`
	TotalDrawn  decimal.Decimal      `json:"total_drawn"`
	Allocations []AllocationResponse `json:"allocations"`
	CardID      uuid.UUID            `json:"card_id"`
}

// ToCardResponse maps a card aggregate onto its output DTO.
func ToCardResponse(card model.Card) CardResponse {
	return CardResponse{
		ID:               card.ID(),
		CustomerID:       card.CustomerID(),
		PrimaryAccountID: card.PrimaryAccountID(),
		Status:           card.Status().String(),
		LastFour:         card.CardNumber().LastFour(),
		ExpiryMonth:      card.CardNumber().ExpiryMonth(),
		ExpiryYear:       card.CardNumber().ExpiryYear(),
		Version:          card.Version(),
		CreatedAt:        card.CreatedAt(),
		UpdatedAt:        card.UpdatedAt(),
	}
}
