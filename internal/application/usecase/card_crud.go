package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bibbank/debitcard/internal/application/dto"
	"github.com/bibbank/debitcard/internal/domain/model"
	"github.com/bibbank/debitcard/internal/domain/port"
	"github.com/bibbank/debitcard/internal/domain/valueobject"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// RegisterCardUseCase handles registering a debit card.
type RegisterCardUseCase struct {
	cardRepo       port.CardRepository
	eventPublisher port.EventPublisher
	logger         *slog.Logger
	topic          string
}

// NewRegisterCardUseCase creates a new RegisterCardUseCase.
// Card lifecycle events are published to topic after the card is stored.
func NewRegisterCardUseCase(
	cardRepo port.CardRepository,
	eventPublisher port.EventPublisher,
	topic string,
	logger *slog.Logger,
) *RegisterCardUseCase {
	return &RegisterCardUseCase{
		cardRepo:       cardRepo,
		eventPublisher: eventPublisher,
		topic:          topic,
		logger:         logger,
	}
}

// Execute registers a card.
func (uc *RegisterCardUseCase) Execute(ctx context.Context, req dto.RegisterCardRequest) (dto.CardResponse, error) {
	cardNumber, err := valueobject.ParseCardNumber(req.CardNumber, req.Expiry)
	if err != nil {
		return dto.CardResponse{}, fmt.Errorf("%w: %v", model.ErrInvalidCard, err)
	}

	card, err := model.NewCard(req.CustomerID, cardNumber, time.Now())
	if err != nil {
		return dto.CardResponse{}, fmt.Errorf("failed to create card: %w", err)
	}

	if err := uc.cardRepo.Save(ctx, card); err != nil {
		return dto.CardResponse{}, fmt.Errorf("failed to save card: %w", err)
	}

	publishCardEvents(ctx, uc.eventPublisher, uc.topic, uc.logger, card)

	return dto.ToCardResponse(card), nil
}

// UpdateCardUseCase handles updating the descriptive fields of a card.
type UpdateCardUseCase struct {
	cardRepo       port.CardRepository
	eventPublisher port.EventPublisher
	logger         *slog.Logger
	topic          string
}

// NewUpdateCardUseCase creates a new UpdateCardUseCase.
func NewUpdateCardUseCase(
	cardRepo port.CardRepository,
	eventPublisher port.EventPublisher,
	topic string,
	logger *slog.Logger,
) *UpdateCardUseCase {
	return &UpdateCardUseCase{
		cardRepo:       cardRepo,
		eventPublisher: eventPublisher,
		topic:          topic,
		logger:         logger,
	}
}

// Execute updates a card. A non-zero req.Version must match the stored version.
func (uc *UpdateCardUseCase) Execute(ctx context.Context, req dto.UpdateCardRequest) (dto.CardResponse, error) {
	card, err := uc.cardRepo.FindByID(ctx, req.CardID)
	if err != nil {
		return dto.CardResponse{}, fmt.Errorf("failed to find card: %w", err)
	}
	if req.Version != 0 && req.Version != card.Version() {
		return dto.CardResponse{}, fmt.Errorf("card %s is at version %d, request targets %d: %w",
			card.ID(), card.Version(), req.Version, model.ErrConcurrentModification)
	}

	cardNumber := card.CardNumber()
	if req.CardNumber != "" {
		cardNumber, err = valueobject.ParseCardNumber(req.CardNumber, req.Expiry)
		if err != nil {
			return dto.CardResponse{}, fmt.Errorf("%w: %v", model.ErrInvalidCard, err)
		}
	}

	status := card.Status()
	if req.Status != "" {
		status, err = valueobject.NewCardStatus(req.Status)
		if err != nil {
			return dto.CardResponse{}, fmt.Errorf("%w: %v", model.ErrInvalidCard, err)
		}
	}

	updated, err := card.Update(cardNumber, status, time.Now())
	if err != nil {
		return dto.CardResponse{}, fmt.Errorf("failed to update card: %w", err)
	}

	if err := uc.cardRepo.Update(ctx, updated); err != nil {
		return dto.CardResponse{}, fmt.Errorf("failed to persist card: %w", err)
	}

	publishCardEvents(ctx, uc.eventPublisher, uc.topic, uc.logger, updated)

	return dto.ToCardResponse(updated), nil
}

// DeleteCardUseCase handles removing a card from the registry.
type DeleteCardUseCase struct {
	cardRepo port.CardRepository
}

// NewDeleteCardUseCase creates a new DeleteCardUseCase.
func NewDeleteCardUseCase(cardRepo port.CardRepository) *DeleteCardUseCase {
	return &DeleteCardUseCase{cardRepo: cardRepo}
}

// Execute deletes a card by ID.
func (uc *DeleteCardUseCase) Execute(ctx context.Context, req dto.DeleteCardRequest) error {
	if err := uc.cardRepo.Delete(ctx, req.CardID); err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	return nil
}

// GetCardUseCase handles retrieval of card details.
type GetCardUseCase struct {
	cardRepo port.CardRepository
}

// NewGetCardUseCase creates a new GetCardUseCase.
func NewGetCardUseCase(cardRepo port.CardRepository) *GetCardUseCase {
	return &GetCardUseCase{cardRepo: cardRepo}
}

// Execute retrieves card details by ID.
func (uc *GetCardUseCase) Execute(ctx context.Context, req dto.GetCardRequest) (dto.CardResponse, error) {
	card, err := uc.cardRepo.FindByID(ctx, req.CardID)
	if err != nil {
		return dto.CardResponse{}, fmt.Errorf("failed to find card: %w", err)
	}
	return dto.ToCardResponse(card), nil
}

// ListCardsUseCase handles paginated listing of cards.
type ListCardsUseCase struct {
	cardRepo port.CardRepository
}

// NewListCardsUseCase creates a new ListCardsUseCase.
func NewListCardsUseCase(cardRepo port.CardRepository) *ListCardsUseCase {
	return &ListCardsUseCase{cardRepo: cardRepo}
}

// Execute lists cards.
func (uc *ListCardsUseCase) Execute(ctx context.Context, req dto.ListCardsRequest) (dto.ListCardsResponse, error) {
	pageSize := req.PageSize
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	offset := max(req.Offset, 0)

	cards, total, err := uc.cardRepo.FindAll(ctx, pageSize, offset)
	if err != nil {
		return dto.ListCardsResponse{}, fmt.Errorf("failed to list cards: %w", err)
	}

	resp := dto.ListCardsResponse{
		Cards:      make([]dto.CardResponse, 0, len(cards)),
		TotalCount: total,
	}
	for _, c := range cards {
		resp.Cards = append(resp.Cards, dto.ToCardResponse(c))
	}
	return resp, nil
}

// publishCardEvents publishes the uncommitted events of card. The card is
// already stored, so a publish failure is logged and not returned.
func publishCardEvents(ctx context.Context, publisher port.EventPublisher, topic string, logger *slog.Logger, card model.Card) {
	evts := card.DomainEvents()
	if len(evts) == 0 {
		return
	}
	if err := publisher.Publish(ctx, topic, evts...); err != nil {
		logger.WarnContext(ctx, "failed to publish card events",
			slog.String("card_id", card.ID().String()),
			slog.String("error", err.Error()),
		)
	}
}
