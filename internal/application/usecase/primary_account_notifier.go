package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/debitcard/internal/domain/event"
	"github.com/bibbank/debitcard/internal/domain/model"
	"github.com/bibbank/debitcard/internal/domain/port"
)

// ConfirmingNotifier asks the account service to mark the account primary
// and waits for the answer.
type ConfirmingNotifier struct {
	accounts port.AccountClient
	timeout  time.Duration
}

// NewConfirmingNotifier creates a new ConfirmingNotifier. Each confirmation
// is bounded by timeout, 10s when zero.
func NewConfirmingNotifier(accounts port.AccountClient, timeout time.Duration) *ConfirmingNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ConfirmingNotifier{accounts: accounts, timeout: timeout}
}

// NotifyPrimaryAccount implements port.PrimaryAccountNotifier. The call is
// not cut short when the caller goes away, so the reservation is only
// released on an answer from the account service or on timeout.
func (n *ConfirmingNotifier) NotifyPrimaryAccount(ctx context.Context, _ model.Card, accountID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if _, err := n.accounts.MarkPrimary(ctx, accountID); err != nil {
		return fmt.Errorf("failed to mark account %s primary: %w", accountID, err)
	}
	return nil
}

// EventNotifier publishes the card's PrimaryAccountAssociated event without
// waiting for the broker. Publish failures are logged only.
type EventNotifier struct {
	publisher port.EventPublisher
	logger    *slog.Logger
	topic     string
	timeout   time.Duration
	inflight  sync.WaitGroup
}

// NewEventNotifier creates a new EventNotifier publishing to topic.
// Each publish is bounded by timeout, 10s when zero.
func NewEventNotifier(publisher port.EventPublisher, topic string, timeout time.Duration, logger *slog.Logger) *EventNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EventNotifier{
		publisher: publisher,
		topic:     topic,
		timeout:   timeout,
		logger:    logger,
	}
}

// NotifyPrimaryAccount implements port.PrimaryAccountNotifier. It returns
// as soon as the publish is started.
func (n *EventNotifier) NotifyPrimaryAccount(ctx context.Context, card model.Card, accountID uuid.UUID) error {
	evt, ok := associationEvent(card, accountID)
	if !ok {
		return fmt.Errorf("card %s carries no association event for account %s", card.ID(), accountID)
	}

	// The publish outlives the request that triggered it.
	pubCtx := context.WithoutCancel(ctx)

	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()

		ctx, cancel := context.WithTimeout(pubCtx, n.timeout)
		defer cancel()

		if err := n.publisher.Publish(ctx, n.topic, evt); err != nil {
			n.logger.ErrorContext(ctx, "failed to publish primary account event",
				slog.String("card_id", card.ID().String()),
				slog.String("account_id", accountID.String()),
				slog.String("topic", n.topic),
				slog.String("error", err.Error()),
			)
		}
	}()

	return nil
}

// Wait blocks until every publish started so far has finished.
func (n *EventNotifier) Wait() {
	n.inflight.Wait()
}

func associationEvent(card model.Card, accountID uuid.UUID) (event.PrimaryAccountAssociated, bool) {
	for _, e := range card.DomainEvents() {
		if evt, ok := e.(event.PrimaryAccountAssociated); ok && evt.AccountID == accountID {
			return evt, true
		}
	}
	return event.PrimaryAccountAssociated{}, false
}
