package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/debitcard/internal/application/dto"
	"github.com/bibbank/debitcard/internal/application/usecase"
	"github.com/bibbank/debitcard/internal/domain/event"
	"github.com/bibbank/debitcard/internal/domain/model"
)

const cardTopic = "debit-card-events"

func TestRegisterCardUseCase_Execute(t *testing.T) {
	t.Run("stores the card and publishes its registration", func(t *testing.T) {
		repo := newMockCardRepository()
		publisher := &mockEventPublisher{}
		customerID := uuid.New()

		resp, err := usecase.NewRegisterCardUseCase(repo, publisher, cardTopic, testLogger()).
			Execute(context.Background(), dto.RegisterCardRequest{
				CardNumber: "4111 1111 1111 1111",
				Expiry:     "09/99",
				CustomerID: customerID,
			})
		require.NoError(t, err)

		assert.Equal(t, customerID, resp.CustomerID)
		assert.Equal(t, "1111", resp.LastFour)
		assert.Equal(t, "ACTIVE", resp.Status)
		assert.Nil(t, resp.PrimaryAccountID)
		require.Len(t, repo.saved, 1)

		batches := publisher.published()
		require.Len(t, batches, 1)
		assert.Equal(t, cardTopic, batches[0].topic)
		assert.Equal(t, event.TypeCardRegistered, batches[0].events[0].EventType())
	})

	t.Run("invalid card number", func(t *testing.T) {
		repo := newMockCardRepository()
		_, err := usecase.NewRegisterCardUseCase(repo, &mockEventPublisher{}, cardTopic, testLogger()).
			Execute(context.Background(), dto.RegisterCardRequest{CardNumber: "1234", Expiry: "09/99", CustomerID: uuid.New()})
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrInvalidCard)
		assert.Empty(t, repo.saved)
	})

	t.Run("publish failure is not an error", func(t *testing.T) {
		repo := newMockCardRepository()
		publisher := &mockEventPublisher{publishErr: errors.New("broker down")}

		_, err := usecase.NewRegisterCardUseCase(repo, publisher, cardTopic, testLogger()).
			Execute(context.Background(), dto.RegisterCardRequest{CardNumber: "4111111111111111", Expiry: "09/99", CustomerID: uuid.New()})
		require.NoError(t, err)
		assert.Len(t, repo.saved, 1)
	})

	t.Run("save failure", func(t *testing.T) {
		repo := newMockCardRepository()
		repo.saveErr = errors.New("db down")

		_, err := usecase.NewRegisterCardUseCase(repo, &mockEventPublisher{}, cardTopic, testLogger()).
			Execute(context.Background(), dto.RegisterCardRequest{CardNumber: "4111111111111111", Expiry: "09/99", CustomerID: uuid.New()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save card")
	})
}

func TestUpdateCardUseCase_Execute(t *testing.T) {
	t.Run("changes status and keeps the primary account", func(t *testing.T) {
		primary := uuid.New()
		card := cardWithPrimary(t, primary)
		repo := newMockCardRepository(card)
		publisher := &mockEventPublisher{}

		resp, err := usecase.NewUpdateCardUseCase(repo, publisher, cardTopic, testLogger()).
			Execute(context.Background(), dto.UpdateCardRequest{CardID: card.ID(), Status: "BLOCKED", Version: card.Version()})
		require.NoError(t, err)

		assert.Equal(t, "BLOCKED", resp.Status)
		assert.Equal(t, card.Version()+1, resp.Version)
		assert.Equal(t, primary, *resp.PrimaryAccountID)
		assert.Equal(t, card.CardNumber().LastFour(), resp.LastFour)
		require.Len(t, repo.updated, 1)
		require.Len(t, publisher.published(), 1)
	})

	t.Run("replaces the card number", func(t *testing.T) {
		card := activeCard(t)
		repo := newMockCardRepository(card)

		resp, err := usecase.NewUpdateCardUseCase(repo, &mockEventPublisher{}, cardTopic, testLogger()).
			Execute(context.Background(), dto.UpdateCardRequest{CardID: card.ID(), CardNumber: "5555555555554444", Expiry: "01/2098"})
		require.NoError(t, err)
		assert.Equal(t, "4444", resp.LastFour)
		assert.Equal(t, "2098", resp.ExpiryYear)
		assert.Equal(t, "ACTIVE", resp.Status)
	})

	t.Run("stale version", func(t *testing.T) {
		card := activeCard(t)
		repo := newMockCardRepository(card)

		_, err := usecase.NewUpdateCardUseCase(repo, &mockEventPublisher{}, cardTopic, testLogger()).
			Execute(context.Background(), dto.UpdateCardRequest{CardID: card.ID(), Status: "BLOCKED", Version: card.Version() + 3})
		assert.ErrorIs(t, err, model.ErrConcurrentModification)
		assert.Empty(t, repo.updated)
	})

	t.Run("invalid status", func(t *testing.T) {
		card := activeCard(t)
		_, err := usecase.NewUpdateCardUseCase(newMockCardRepository(card), &mockEventPublisher{}, cardTopic, testLogger()).
			Execute(context.Background(), dto.UpdateCardRequest{CardID: card.ID(), Status: "LOST"})
		assert.Error(t, err)
	})

	t.Run("unknown card", func(t *testing.T) {
		_, err := usecase.NewUpdateCardUseCase(newMockCardRepository(), &mockEventPublisher{}, cardTopic, testLogger()).
			Execute(context.Background(), dto.UpdateCardRequest{CardID: uuid.New(), Status: "BLOCKED"})
		assert.ErrorIs(t, err, model.ErrCardNotFound)
	})
}

func TestDeleteCardUseCase_Execute(t *testing.T) {
	card := activeCard(t)
	repo := newMockCardRepository(card)
	uc := usecase.NewDeleteCardUseCase(repo)

	require.NoError(t, uc.Execute(context.Background(), dto.DeleteCardRequest{CardID: card.ID()}))
	assert.Equal(t, []uuid.UUID{card.ID()}, repo.deleted)

	err := uc.Execute(context.Background(), dto.DeleteCardRequest{CardID: card.ID()})
	assert.ErrorIs(t, err, model.ErrCardNotFound)
}

func TestGetCardUseCase_Execute(t *testing.T) {
	card := activeCard(t)
	uc := usecase.NewGetCardUseCase(newMockCardRepository(card))

	resp, err := uc.Execute(context.Background(), dto.GetCardRequest{CardID: card.ID()})
	require.NoError(t, err)
	assert.Equal(t, card.ID(), resp.ID)
	assert.Equal(t, "4242", resp.LastFour)

	_, err = uc.Execute(context.Background(), dto.GetCardRequest{CardID: uuid.New()})
	assert.ErrorIs(t, err, model.ErrCardNotFound)
}

func TestListCardsUseCase_Execute(t *testing.T) {
	cards := []model.Card{activeCard(t), activeCard(t), activeCard(t)}
	uc := usecase.NewListCardsUseCase(newMockCardRepository(cards...))

	t.Run("default page", func(t *testing.T) {
		resp, err := uc.Execute(context.Background(), dto.ListCardsRequest{})
		require.NoError(t, err)
		assert.Len(t, resp.Cards, 3)
		assert.Equal(t, 3, resp.TotalCount)
	})

	t.Run("page size and offset", func(t *testing.T) {
		resp, err := uc.Execute(context.Background(), dto.ListCardsRequest{PageSize: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, resp.Cards, 1)
		assert.Equal(t, 3, resp.TotalCount)
	})

	t.Run("negative offset is clamped", func(t *testing.T) {
		resp, err := uc.Execute(context.Background(), dto.ListCardsRequest{PageSize: 1, Offset: -4})
		require.NoError(t, err)
		assert.Len(t, resp.Cards, 1)
	})
}

func TestGetPrimaryAccountBalanceUseCase_Execute(t *testing.T) {
	t.Run("returns the primary balance", func(t *testing.T) {
		acc := linkedAccount(uuid.New(), "A1", "73.25", true, day(2023, 1, 1))
		card := cardWithPrimary(t, acc.ID)

		resp, err := usecase.NewGetPrimaryAccountBalanceUseCase(newMockCardRepository(card), newMockAccountClient(acc)).
			Execute(context.Background(), dto.GetPrimaryAccountBalanceRequest{CardID: card.ID()})
		require.NoError(t, err)
		assert.Equal(t, acc.ID, resp.AccountID)
		assert.Equal(t, "73.25", resp.Balance.String())
	})

	t.Run("card without primary", func(t *testing.T) {
		card := activeCard(t)
		_, err := usecase.NewGetPrimaryAccountBalanceUseCase(newMockCardRepository(card), newMockAccountClient()).
			Execute(context.Background(), dto.GetPrimaryAccountBalanceRequest{CardID: card.ID()})
		assert.ErrorIs(t, err, model.ErrNoPrimaryAccount)
	})

	t.Run("account service failure", func(t *testing.T) {
		card := cardWithPrimary(t, uuid.New())
		_, err := usecase.NewGetPrimaryAccountBalanceUseCase(newMockCardRepository(card), newMockAccountClient()).
			Execute(context.Background(), dto.GetPrimaryAccountBalanceRequest{CardID: card.ID()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get primary account")
	})
}
