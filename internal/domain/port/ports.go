package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bibbank/debitcard/internal/domain/event"
	"github.com/bibbank/debitcard/internal/domain/model"
)

// CardRepository defines the persistence port for card aggregates.
type CardRepository interface {
	// Save persists a new card aggregate.
	Save(ctx context.Context, card model.Card) error

	// Update persists changes to an existing card aggregate.
	// Must enforce optimistic concurrency via the version field.
	Update(ctx context.Context, card model.Card) error

	// FindByID retrieves a card by its unique identifier.
	// Returns model.ErrCardNotFound when the card does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (model.Card, error)

	// FindAll lists cards, most recently created first.
	FindAll(ctx context.Context, limit, offset int) ([]model.Card, int, error)

	// Delete removes a card. Returns model.ErrCardNotFound when absent.
	Delete(ctx context.Context, id uuid.UUID) error

	// AssignPrimaryAccount stores card's primary account only if the stored
	// card still has none and returns the card as stored. Returns
	// model.ErrPrimaryAccountAlreadyAssigned when another request won the race.
	AssignPrimaryAccount(ctx context.Context, card model.Card) (model.Card, error)

	// ReleasePrimaryAccount clears the primary account of cardID only while
	// it still equals accountID.
	ReleasePrimaryAccount(ctx context.Context, cardID, accountID uuid.UUID) error
}

// AccountClient is the port to the remote account service.
type AccountClient interface {
	Get(ctx context.Context, accountID uuid.UUID) (model.Account, error)
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]model.Account, error)
	Update(ctx context.Context, account model.Account) (model.Account, error)
	MarkPrimary(ctx context.Context, accountID uuid.UUID) (model.Account, error)
}

// TransactionClient is the port to the remote transaction service.
type TransactionClient interface {
	Create(ctx context.Context, draft model.Transaction) (model.Transaction, error)
}

// EventPublisher defines the port for publishing domain events.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, events ...event.DomainEvent) error
}

// PrimaryAccountNotifier tells the outside world that a card's primary
// account was reserved. Implementations decide whether to wait for an answer.
type PrimaryAccountNotifier interface {
	NotifyPrimaryAccount(ctx context.Context, card model.Card, accountID uuid.UUID) error
}

// MetricsRecorder receives business measurements from the use cases.
type MetricsRecorder interface {
	PaymentCompleted(ctx context.Context, requested, drawn decimal.Decimal, participants int)
	PaymentFailed(ctx context.Context, step string)
	PrimaryAccountAssociation(ctx context.Context, path, outcome string)
}
