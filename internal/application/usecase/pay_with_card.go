package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/bibbank/debitcard/internal/application/dto"
	"github.com/bibbank/debitcard/internal/domain/model"
	"github.com/bibbank/debitcard/internal/domain/port"
	"github.com/bibbank/debitcard/internal/domain/service"
)

// Payment steps reported in logs and metrics.
const (
	stepCreateTransaction = "create_transaction"
	stepUpdateAccount     = "update_account"
)

// PayWithCardUseCase splits a payment across the accounts linked to a card.
type PayWithCardUseCase struct {
	cardRepo     port.CardRepository
	accounts     port.AccountClient
	transactions port.TransactionClient
	metrics      port.MetricsRecorder
	logger       *slog.Logger
	concurrency  int
}

// NewPayWithCardUseCase creates a new PayWithCardUseCase. concurrency caps
// the number of accounts settled at once; zero or less means no cap.
func NewPayWithCardUseCase(
	cardRepo port.CardRepository,
	accounts port.AccountClient,
	transactions port.TransactionClient,
	metrics port.MetricsRecorder,
	concurrency int,
	logger *slog.Logger,
) *PayWithCardUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &PayWithCardUseCase{
		cardRepo:     cardRepo,
		accounts:     accounts,
		transactions: transactions,
		metrics:      metrics,
		concurrency:  concurrency,
		logger:       logger,
	}
}

// Execute draws req.Amount from the card's accounts in funding order.
//
// Every participating account gets one journal entry followed by one
// balance update. Accounts are settled concurrently; the response lists them
// in funding order. The first failure cancels settlements that have not
// started yet, and writes that already happened stay in place.
func (uc *PayWithCardUseCase) Execute(ctx context.Context, req dto.PayWithCardRequest) (dto.PayWithCardResponse, error) {
	ctx, span := tracer.Start(ctx, "PayWithCard")
	defer span.End()
	span.SetAttributes(
		attribute.String("card.id", req.CardID.String()),
		attribute.String("payment.amount", req.Amount.String()),
	)

	if !req.Amount.IsPositive() {
		return dto.PayWithCardResponse{}, model.ErrInvalidAmount
	}

	card, err := uc.cardRepo.FindByID(ctx, req.CardID)
	if err != nil {
		return dto.PayWithCardResponse{}, fmt.Errorf("failed to find card: %w", err)
	}

	now := time.Now().UTC()
	if err := card.EnsureUsable(now); err != nil {
		return dto.PayWithCardResponse{}, err
	}

	linked, err := uc.accounts.ListByCard(ctx, card.ID())
	if err != nil {
		return dto.PayWithCardResponse{}, fmt.Errorf("failed to list accounts for card: %w", err)
	}

	plan := service.PlanAllocation(service.OrderAccounts(linked), req.Amount)
	span.SetAttributes(attribute.Int("payment.participants", len(plan.Shares)))

	allocations := make([]dto.AllocationResponse, len(plan.Shares))

	g, gctx := errgroup.WithContext(ctx)
	if uc.concurrency > 0 {
		g.SetLimit(uc.concurrency)
	}
	for i, share := range plan.Shares {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			allocation, err := uc.settle(gctx, card.ID(), share, now)
			if err != nil {
				return err
			}
			allocations[i] = allocation
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment failed")
		return dto.PayWithCardResponse{}, err
	}

	uc.metrics.PaymentCompleted(ctx, plan.Requested, plan.Total(), len(plan.Shares))

	if plan.Shortfall().IsPositive() {
		uc.logger.InfoContext(ctx, "card payment not fully covered",
			slog.String("card_id", card.ID().String()),
			slog.String("requested", plan.Requested.String()),
			slog.String("drawn", plan.Total().String()),
		)
	}

	return dto.PayWithCardResponse{
		CardID:      card.ID(),
		Requested:   plan.Requested,
		TotalDrawn:  plan.Total(),
		Allocations: allocations,
	}, nil
}

// settle records the journal entry for one share and then writes the new
// balance back. The balance update only starts after the entry exists.
func (uc *PayWithCardUseCase) settle(ctx context.Context, cardID uuid.UUID, share model.AllocationShare, now time.Time) (dto.AllocationResponse, error) {
	accountID := share.Account.ID.String()

	txn, err := uc.transactions.Create(ctx, model.NewCardPaymentDraft(cardID, share, now))
	if err != nil {
		uc.metrics.PaymentFailed(ctx, stepCreateTransaction)
		uc.logger.ErrorContext(ctx, "card payment step failed",
			slog.String("card_id", cardID.String()),
			slog.String("account_id", accountID),
			slog.String("step", stepCreateTransaction),
			slog.String("error", err.Error()),
		)
		return dto.AllocationResponse{}, fmt.Errorf("failed to create transaction for account %s: %w", accountID, err)
	}

	updated, err := uc.accounts.Update(ctx, share.UpdatedAccount())
	if err != nil {
		// The journal entry is already recorded and is not compensated.
		uc.metrics.PaymentFailed(ctx, stepUpdateAccount)
		uc.logger.ErrorContext(ctx, "card payment step failed",
			slog.String("card_id", cardID.String()),
			slog.String("account_id", accountID),
			slog.String("transaction_id", txn.ID.String()),
			slog.String("step", stepUpdateAccount),
			slog.String("error", err.Error()),
		)
		return dto.AllocationResponse{}, fmt.Errorf("failed to update balance of account %s: %w", accountID, err)
	}

	return dto.AllocationResponse{
		AccountID:     updated.ID,
		NumberAccount: updated.NumberAccount,
		Share:         share.Share,
		Balance:       updated.Balance,
		TransactionID: txn.ID,
	}, nil
}
