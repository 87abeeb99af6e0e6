package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bibbank/debitcard/internal/application/dto"
	"github.com/bibbank/debitcard/internal/domain/model"
	"github.com/bibbank/debitcard/internal/domain/port"
)

// Association paths.
const (
	PathConfirmed = "confirmed"
	PathEventual  = "eventual"
)

// Association outcomes reported to metrics.
const (
	outcomeAssociated = "associated"
	outcomeUnchanged  = "unchanged"
	outcomeRejected   = "rejected"
	outcomeFailed     = "failed"
)

// AssociatePrimaryAccountUseCase makes an account the primary account of the
// card it is linked to. The same flow serves both the confirmed and the
// eventual path; only the notifier differs.
type AssociatePrimaryAccountUseCase struct {
	cardRepo port.CardRepository
	accounts port.AccountClient
	notifier port.PrimaryAccountNotifier
	metrics  port.MetricsRecorder
	logger   *slog.Logger
	path     string
}

// NewAssociatePrimaryAccountUseCase creates a new AssociatePrimaryAccountUseCase.
// path labels logs and metrics (PathConfirmed or PathEventual).
func NewAssociatePrimaryAccountUseCase(
	cardRepo port.CardRepository,
	accounts port.AccountClient,
	notifier port.PrimaryAccountNotifier,
	path string,
	metrics port.MetricsRecorder,
	logger *slog.Logger,
) *AssociatePrimaryAccountUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &AssociatePrimaryAccountUseCase{
		cardRepo: cardRepo,
		accounts: accounts,
		notifier: notifier,
		path:     path,
		metrics:  metrics,
		logger:   logger,
	}
}

// Execute associates req.AccountID as primary account of its card.
//
// A card that already has a primary account, req.AccountID or another one,
// is returned as stored with no mutation and no notification. Otherwise the
// assignment is reserved in the store with a compare-and-swap and the
// notifier is called. If the notifier fails the reservation is released and
// the error returned.
func (uc *AssociatePrimaryAccountUseCase) Execute(ctx context.Context, req dto.AssociatePrimaryAccountRequest) (dto.CardResponse, error) {
	ctx, span := tracer.Start(ctx, "AssociatePrimaryAccount")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", req.AccountID.String()),
		attribute.String("association.path", uc.path),
	)

	resp, outcome, err := uc.associate(ctx, req)
	uc.metrics.PrimaryAccountAssociation(ctx, uc.path, outcome)
	span.SetAttributes(attribute.String("association.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	return resp, err
}

func (uc *AssociatePrimaryAccountUseCase) associate(ctx context.Context, req dto.AssociatePrimaryAccountRequest) (dto.CardResponse, string, error) {
	account, err := uc.accounts.Get(ctx, req.AccountID)
	if err != nil {
		return dto.CardResponse{}, outcomeFailed, fmt.Errorf("failed to get account: %w", err)
	}
	if account.DebitCardID == nil {
		return dto.CardResponse{}, outcomeRejected, fmt.Errorf("account %s: %w", account.ID, model.ErrAccountNotLinked)
	}

	card, err := uc.cardRepo.FindByID(ctx, *account.DebitCardID)
	if err != nil {
		return dto.CardResponse{}, outcomeFailed, fmt.Errorf("failed to find card: %w", err)
	}

	if card.IsPrimaryAccount(account.ID) {
		return dto.ToCardResponse(card), outcomeUnchanged, nil
	}

	assigned, err := card.AssignPrimaryAccount(account.ID, time.Now())
	if errors.Is(err, model.ErrPrimaryAccountAlreadyAssigned) {
		uc.logRejected(ctx, card, account.ID)
		return dto.ToCardResponse(card), outcomeRejected, nil
	}
	if err != nil {
		return dto.CardResponse{}, outcomeFailed, err
	}

	stored, err := uc.cardRepo.AssignPrimaryAccount(ctx, assigned)
	if errors.Is(err, model.ErrPrimaryAccountAlreadyAssigned) {
		return uc.lostReservation(ctx, card.ID(), account.ID, err)
	}
	if err != nil {
		return dto.CardResponse{}, outcomeFailed, fmt.Errorf("failed to reserve primary account: %w", err)
	}

	if err := uc.notifier.NotifyPrimaryAccount(ctx, assigned, account.ID); err != nil {
		if rerr := uc.cardRepo.ReleasePrimaryAccount(context.WithoutCancel(ctx), card.ID(), account.ID); rerr != nil {
			uc.logger.ErrorContext(ctx, "failed to release primary account reservation",
				slog.String("card_id", card.ID().String()),
				slog.String("account_id", account.ID.String()),
				slog.String("error", rerr.Error()),
			)
		}
		return dto.CardResponse{}, outcomeFailed, fmt.Errorf("failed to notify primary account: %w", err)
	}

	uc.logger.InfoContext(ctx, "primary account associated",
		slog.String("card_id", card.ID().String()),
		slog.String("account_id", account.ID.String()),
		slog.String("path", uc.path),
	)

	return dto.ToCardResponse(stored), outcomeAssociated, nil
}

// lostReservation handles a compare-and-swap that found the stored card
// already assigned. A card that meanwhile got a primary account is returned
// as is; anything else (the account being primary elsewhere) is an error.
func (uc *AssociatePrimaryAccountUseCase) lostReservation(ctx context.Context, cardID, accountID uuid.UUID, casErr error) (dto.CardResponse, string, error) {
	current, err := uc.cardRepo.FindByID(ctx, cardID)
	if err != nil {
		return dto.CardResponse{}, outcomeFailed, fmt.Errorf("failed to find card: %w", err)
	}
	if !current.HasPrimaryAccount() {
		return dto.CardResponse{}, outcomeRejected, fmt.Errorf("failed to reserve primary account: %w", casErr)
	}
	if current.IsPrimaryAccount(accountID) {
		return dto.ToCardResponse(current), outcomeUnchanged, nil
	}
	uc.logRejected(ctx, current, accountID)
	return dto.ToCardResponse(current), outcomeRejected, nil
}

func (uc *AssociatePrimaryAccountUseCase) logRejected(ctx context.Context, card model.Card, accountID uuid.UUID) {
	uc.logger.InfoContext(ctx, "card already has a primary account, association skipped",
		slog.String("card_id", card.ID().String()),
		slog.String("account_id", accountID.String()),
		slog.String("primary_account_id", card.PrimaryAccountID().String()),
		slog.String("path", uc.path),
	)
}
