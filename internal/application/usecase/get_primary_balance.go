package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/debitcard/internal/application/dto"
	"github.com/bibbank/debitcard/internal/domain/model"
	"github.com/bibbank/debitcard/internal/domain/port"
)

// GetPrimaryAccountBalanceUseCase reads the balance of a card's primary account.
type GetPrimaryAccountBalanceUseCase struct {
	cardRepo port.CardRepository
	accounts port.AccountClient
}

// NewGetPrimaryAccountBalanceUseCase creates a new GetPrimaryAccountBalanceUseCase.
func NewGetPrimaryAccountBalanceUseCase(cardRepo port.CardRepository, accounts port.AccountClient) *GetPrimaryAccountBalanceUseCase {
	return &GetPrimaryAccountBalanceUseCase{
		cardRepo: cardRepo,
		accounts: accounts,
	}
}

// Execute returns model.ErrNoPrimaryAccount when the card has no primary account.
func (uc *GetPrimaryAccountBalanceUseCase) Execute(ctx context.Context, req dto.GetPrimaryAccountBalanceRequest) (dto.PrimaryAccountBalanceResponse, error) {
	card, err := uc.cardRepo.FindByID(ctx, req.CardID)
	if err != nil {
		return dto.PrimaryAccountBalanceResponse{}, fmt.Errorf("failed to find card: %w", err)
	}

	primaryID := card.PrimaryAccountID()
	if primaryID == nil {
		return dto.PrimaryAccountBalanceResponse{}, fmt.Errorf("card %s: %w", card.ID(), model.ErrNoPrimaryAccount)
	}

	account, err := uc.accounts.Get(ctx, *primaryID)
	if err != nil {
		return dto.PrimaryAccountBalanceResponse{}, fmt.Errorf("failed to get primary account: %w", err)
	}

	return dto.PrimaryAccountBalanceResponse{
		CardID:    card.ID(),
		AccountID: account.ID,
		Balance:   account.Balance,
	}, nil
}
