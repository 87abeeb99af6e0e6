package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/debitcard/pkg/events"
)

// DomainEvent is an alias for the shared pkg/events.DomainEvent interface.
type DomainEvent = events.DomainEvent

const aggregateType = "DebitCard"

// Event type names.
const (
	TypeCardRegistered           = "debitcard.registered"
	TypeCardUpdated              = "debitcard.updated"
	TypePrimaryAccountAssociated = "debitcard.primary_account.associated"
)

// CardRegistered is emitted when a debit card enters the registry.
type CardRegistered struct {
	events.BaseEvent
	CardID       uuid.UUID `json:"card_id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	LastFour     string    `json:"last_four"`
	RegisteredAt time.Time `json:"registered_at"`
}

func NewCardRegistered(cardID, customerID uuid.UUID, lastFour string, registeredAt time.Time) CardRegistered {
	return CardRegistered{
		BaseEvent:    events.NewBaseEvent(TypeCardRegistered, cardID.String(), aggregateType),
		CardID:       cardID,
		CustomerID:   customerID,
		LastFour:     lastFour,
		RegisteredAt: registeredAt,
	}
}

// CardUpdated is emitted when a card's descriptive fields or status change.
type CardUpdated struct {
	events.BaseEvent
	CardID    uuid.UUID `json:"card_id"`
	Status    string    `json:"status"`
	LastFour  string    `json:"last_four"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewCardUpdated(cardID uuid.UUID, status, lastFour string, updatedAt time.Time) CardUpdated {
	return CardUpdated{
		BaseEvent: events.NewBaseEvent(TypeCardUpdated, cardID.String(), aggregateType),
		CardID:    cardID,
		Status:    status,
		LastFour:  lastFour,
		UpdatedAt: updatedAt,
	}
}

// PrimaryAccountAssociated announces that an account became the primary
// account of a card. The wire payload carries only the two identifiers.
type PrimaryAccountAssociated struct {
	events.BaseEvent
	AccountID uuid.UUID `json:"account_id"`
	CardID    uuid.UUID `json:"card_id"`
}

func NewPrimaryAccountAssociated(cardID, accountID uuid.UUID) PrimaryAccountAssociated {
	return PrimaryAccountAssociated{
		BaseEvent: events.NewBaseEvent(TypePrimaryAccountAssociated, cardID.String(), aggregateType),
		AccountID: accountID,
		CardID:    cardID,
	}
}
