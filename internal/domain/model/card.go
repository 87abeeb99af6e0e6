package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/debitcard/internal/domain/event"
	"github.com/bibbank/debitcard/internal/domain/valueobject"
	"github.com/bibbank/debitcard/pkg/events"
)

// Card is the aggregate root of the debit-card registry.
// A nil primaryAccountID means the card has no primary account yet.
type Card struct {
	id               uuid.UUID
	customerID       uuid.UUID
	cardNumber       valueobject.CardNumber
	status           valueobject.CardStatus
	primaryAccountID *uuid.UUID
	version          int
	createdAt        time.Time
	updatedAt        time.Time
	domainEvents     []events.DomainEvent
}

// NewCard registers a new ACTIVE card without a primary account.
func NewCard(customerID uuid.UUID, cardNumber valueobject.CardNumber, now time.Time) (Card, error) {
	if customerID == uuid.Nil {
		return Card{}, fmt.Errorf("%w: customer ID is required", ErrInvalidCard)
	}
	if cardNumber.IsZero() {
		return Card{}, fmt.Errorf("%w: card number is required", ErrInvalidCard)
	}
	if cardNumber.IsExpired(now) {
		return Card{}, fmt.Errorf("%w: card expired in %s", ErrInvalidCard, cardNumber.Expiry())
	}

	now = now.UTC()
	c := Card{
		id:         uuid.New(),
		customerID: customerID,
		cardNumber: cardNumber,
		status:     valueobject.CardStatusActive,
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}

	c.domainEvents = append(c.domainEvents, event.NewCardRegistered(
		c.id, customerID, cardNumber.LastFour(), now,
	))

	return c, nil
}

// Reconstruct rebuilds a Card aggregate from persisted state.
// No domain events are emitted and no validation is performed.
func Reconstruct(
	id, customerID uuid.UUID,
	cardNumber valueobject.CardNumber,
	status valueobject.CardStatus,
	primaryAccountID *uuid.UUID,
	version int,
	createdAt, updatedAt time.Time,
) Card {
	return Card{
		id:               id,
		customerID:       customerID,
		cardNumber:       cardNumber,
		status:           status,
		primaryAccountID: clonePrimary(primaryAccountID),
		version:          version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// cloneEvents returns a copy of the domain events slice so that
// value-receiver methods don't race on the shared backing array.
func (c Card) cloneEvents() []events.DomainEvent {
	if len(c.domainEvents) == 0 {
		return nil
	}
	cloned := make([]events.DomainEvent, len(c.domainEvents))
	copy(cloned, c.domainEvents)
	return cloned
}

// Update replaces the descriptive fields of the card. The primary account is
// not touched; it only changes through AssignPrimaryAccount.
func (c Card) Update(cardNumber valueobject.CardNumber, status valueobject.CardStatus, now time.Time) (Card, error) {
	if cardNumber.IsZero() {
		return c, fmt.Errorf("%w: card number is required", ErrInvalidCard)
	}
	if !c.status.CanTransitionTo(status) {
		return c, fmt.Errorf("%w: cannot move card from %s to %s", ErrInvalidCard, c.status, status)
	}

	c.cardNumber = cardNumber
	c.status = status
	c.updatedAt = now.UTC()
	c.version++

	c.domainEvents = append(c.cloneEvents(), event.NewCardUpdated(
		c.id, status.String(), cardNumber.LastFour(), c.updatedAt,
	))

	return c, nil
}

// AssignPrimaryAccount sets the primary account of a card that has none.
// A card that already has a primary account is left unchanged and
// ErrPrimaryAccountAlreadyAssigned is returned.
func (c Card) AssignPrimaryAccount(accountID uuid.UUID, now time.Time) (Card, error) {
	if accountID == uuid.Nil {
		return c, fmt.Errorf("%w: account ID is required", ErrInvalidCard)
	}
	if c.primaryAccountID != nil {
		return c, fmt.Errorf("card %s: %w", c.id, ErrPrimaryAccountAlreadyAssigned)
	}

	c.primaryAccountID = &accountID
	c.updatedAt = now.UTC()
	c.version++

	c.domainEvents = append(c.cloneEvents(), event.NewPrimaryAccountAssociated(c.id, accountID))

	return c, nil
}

// EnsureUsable returns ErrCardNotUsable unless the card can take payments at now.
func (c Card) EnsureUsable(now time.Time) error {
	if !c.status.IsUsable() {
		return fmt.Errorf("card %s is %s: %w", c.id, c.status, ErrCardNotUsable)
	}
	if c.cardNumber.IsExpired(now) {
		return fmt.Errorf("card %s expired in %s: %w", c.id, c.cardNumber.Expiry(), ErrCardNotUsable)
	}
	return nil
}

// HasPrimaryAccount reports whether a primary account is assigned.
func (c Card) HasPrimaryAccount() bool {
	return c.primaryAccountID != nil
}

// IsPrimaryAccount reports whether accountID is the card's primary account.
func (c Card) IsPrimaryAccount(accountID uuid.UUID) bool {
	return c.primaryAccountID != nil && *c.primaryAccountID == accountID
}

// --- Getters ---

func (c Card) ID() uuid.UUID                      { return c.id }
func (c Card) CustomerID() uuid.UUID              { return c.customerID }
func (c Card) CardNumber() valueobject.CardNumber { return c.cardNumber }
func (c Card) Status() valueobject.CardStatus     { return c.status }
func (c Card) Version() int                       { return c.version }
func (c Card) CreatedAt() time.Time               { return c.createdAt }
func (c Card) UpdatedAt() time.Time               { return c.updatedAt }

// PrimaryAccountID returns a copy of the primary account id, or nil.
func (c Card) PrimaryAccountID() *uuid.UUID {
	return clonePrimary(c.primaryAccountID)
}

// DomainEvents returns all uncommitted domain events.
func (c Card) DomainEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(c.domainEvents))
	copy(out, c.domainEvents)
	return out
}

// ClearEvents returns a new Card with the domain events cleared.
func (c Card) ClearEvents() Card {
	c.domainEvents = nil
	return c
}

func clonePrimary(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
