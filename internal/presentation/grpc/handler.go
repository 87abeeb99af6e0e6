package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/debitcard/internal/application/dto"
	"github.com/bibbank/debitcard/internal/application/usecase"
	"github.com/bibbank/debitcard/internal/domain/model"
	"github.com/bibbank/debitcard/pkg/auth"
)

// Compile-time assertion that DebitCardHandler implements DebitCardServiceServer.
var _ DebitCardServiceServer = (*DebitCardHandler)(nil)

// UseCases groups the application use cases served over gRPC.
type UseCases struct {
	RegisterCard       *usecase.RegisterCardUseCase
	UpdateCard         *usecase.UpdateCardUseCase
	DeleteCard         *usecase.DeleteCardUseCase
	GetCard            *usecase.GetCardUseCase
	ListCards          *usecase.ListCardsUseCase
	AssociateConfirmed *usecase.AssociatePrimaryAccountUseCase
	AssociateEventual  *usecase.AssociatePrimaryAccountUseCase
	GetPrimaryBalance  *usecase.GetPrimaryAccountBalanceUseCase
	PayWithCard        *usecase.PayWithCardUseCase
}

// DebitCardHandler implements the gRPC DebitCardServiceServer interface.
type DebitCardHandler struct {
	uc     UseCases
	logger *slog.Logger
}

// NewDebitCardHandler creates a new DebitCardHandler.
func NewDebitCardHandler(uc UseCases, logger *slog.Logger) *DebitCardHandler {
	return &DebitCardHandler{uc: uc, logger: logger}
}

// RegisterCard handles the gRPC request to register a card.
func (h *DebitCardHandler) RegisterCard(ctx context.Context, req *RegisterCardRequest) (*CardResponse, error) {
	if err := auth.RequireRole(ctx, auth.RoleAdmin, auth.RoleOperator); err != nil {
		return nil, err
	}
	customerID, err := parseID("customer_id", req.CustomerID)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.RegisterCard.Execute(ctx, dto.RegisterCardRequest{
		CardNumber: req.CardNumber,
		Expiry:     req.Expiry,
		CustomerID: customerID,
	})
	if err != nil {
		return nil, h.toStatus(ctx, "RegisterCard", err)
	}
	return &CardResponse{Card: toCardMsg(resp)}, nil
}

// UpdateCard handles the gRPC request to update a card.
func (h *DebitCardHandler) UpdateCard(ctx context.Context, req *UpdateCardRequest) (*CardResponse, error) {
	if err := auth.RequireRole(ctx, auth.RoleAdmin, auth.RoleOperator); err != nil {
		return nil, err
	}
	cardID, err := parseID("card_id", req.CardID)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.UpdateCard.Execute(ctx, dto.UpdateCardRequest{
		CardID:     cardID,
		CardNumber: req.CardNumber,
		Expiry:     req.Expiry,
		Status:     req.Status,
		Version:    req.Version,
	})
	if err != nil {
		return nil, h.toStatus(ctx, "UpdateCard", err)
	}
	return &CardResponse{Card: toCardMsg(resp)}, nil
}

// DeleteCard handles the gRPC request to delete a card.
func (h *DebitCardHandler) DeleteCard(ctx context.Context, req *CardIDRequest) (*DeleteCardResponse, error) {
	if err := auth.RequireRole(ctx, auth.RoleAdmin, auth.RoleOperator); err != nil {
		return nil, err
	}
	cardID, err := parseID("card_id", req.CardID)
	if err != nil {
		return nil, err
	}

	if err := h.uc.DeleteCard.Execute(ctx, dto.DeleteCardRequest{CardID: cardID}); err != nil {
		return nil, h.toStatus(ctx, "DeleteCard", err)
	}
	return &DeleteCardResponse{}, nil
}

// GetCard handles the gRPC request to fetch a card. Customers may only read
// their own cards.
func (h *DebitCardHandler) GetCard(ctx context.Context, req *CardIDRequest) (*CardResponse, error) {
	if err := auth.RequireRole(ctx, auth.RoleAdmin, auth.RoleOperator, auth.RoleService, auth.RoleCustomer); err != nil {
		return nil, err
	}
	cardID, err := parseID("card_id", req.CardID)
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.GetCard.Execute(ctx, dto.GetCardRequest{CardID: cardID})
	if err != nil {
		return nil, h.toStatus(ctx, "GetCard", err)
	}
	if err := requireOwner(ctx, resp.CustomerID); err != nil {
		return nil, err
	}
	return &CardResponse{Card: toCardMsg(resp)}, nil
}

// ListCards handles the gRPC request to page through cards.
func (h *DebitCardHandler) ListCards(ctx context.Context, req *ListCardsRequest) (*ListCardsResponse, error) {
	if err := auth.RequireRole(ctx, auth.RoleAdmin, auth.RoleOperator); err != nil {
		return nil, err
	}
	if req.PageSize < 0 || req.Offset < 0 {
		return nil, status.Error(codes.InvalidArgument, "page_size and offset must not be negative")
	}

	resp, err := h.uc.ListCards.Execute(ctx, dto.ListCardsRequest{PageSize: req.PageSize, Offset: req.Offset})
	if err != nil {
		return nil, h.toStatus(ctx, "ListCards", err)
	}

	cards := make([]*CardMsg, 0, len(resp.Cards))
	for _, c := range resp.Cards {
		cards = append(cards, toCardMsg(c))
	}
	return &ListCardsResponse{Cards: cards, TotalCount: resp.TotalCount}, nil
}

// AssociatePrimaryAccount makes an account primary and waits for the account
// service to confirm.
func (h *DebitCardHandler) AssociatePrimaryAccount(ctx context.Context, req *AssociatePrimaryAccountRequest) (*CardResponse, error) {
	return h.associate(ctx, "AssociatePrimaryAccount", h.uc.AssociateConfirmed, req)
}

// AssociatePrimaryAccountAsync makes an account primary and announces it on
// the event bus without waiting for delivery.
func (h *DebitCardHandler) AssociatePrimaryAccountAsync(ctx context.Context, req *AssociatePrimaryAccountRequest) (*CardResponse, error) {
	return h.associate(ctx, "AssociatePrimaryAccountAsync", h.uc.AssociateEventual, req)
}

func (h *DebitCardHandler) associate(
	ctx context.Context,
	method string,
	uc *usecase.AssociatePrimaryAccountUseCase,
	req *AssociatePrimaryAccountRequest,
) (*CardResponse, error) {
	if err := auth.RequireRole(ctx, auth.RoleAdmin, auth.RoleOperator, auth.RoleService); err != nil {
		return nil, err
	}
	accountID, err := parseID("account_id", req.AccountID)
	if err != nil {
		return nil, err
	}

	resp, err := uc.Execute(ctx, dto.AssociatePrimaryAccountRequest{AccountID: accountID})
	if err != nil {
		return nil, h.toStatus(ctx, method, err)
	}
	return &CardResponse{Card: toCardMsg(resp)}, nil
}

// GetPrimaryAccountBalance returns the balance of the card's primary account.
func (h *DebitCardHandler) GetPrimaryAccountBalance(ctx context.Context, req *CardIDRequest) (*PrimaryAccountBalanceResponse, error) {
	if err := auth.RequireRole(ctx, auth.RoleAdmin, auth.RoleOperator, auth.RoleService, auth.RoleCustomer); err != nil {
		return nil, err
	}
	cardID, err := parseID("card_id", req.CardID)
	if err != nil {
		return nil, err
	}

	if isCustomerOnly(ctx) {
		card, err := h.uc.GetCard.Execute(ctx, dto.GetCardRequest{CardID: cardID})
		if err != nil {
			return nil, h.toStatus(ctx, "GetPrimaryAccountBalance", err)
		}
		if err := requireOwner(ctx, card.CustomerID); err != nil {
			return nil, err
		}
	}

	resp, err := h.uc.GetPrimaryBalance.Execute(ctx, dto.GetPrimaryAccountBalanceRequest{CardID: cardID})
	if err != nil {
		return nil, h.toStatus(ctx, "GetPrimaryAccountBalance", err)
	}
	return &PrimaryAccountBalanceResponse{
		CardID:    resp.CardID.String(),
		AccountID: resp.AccountID.String(),
		Balance:   resp.Balance.String(),
	}, nil
}

// PayWithCard draws amount from the accounts linked to the card.
func (h *DebitCardHandler) PayWithCard(ctx context.Context, req *PayWithCardRequest) (*PayWithCardResponse, error) {
	if err := auth.RequireRole(ctx, auth.RoleAdmin, auth.RoleOperator, auth.RoleService); err != nil {
		return nil, err
	}
	cardID, err := parseID("card_id", req.CardID)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid amount: %v", err)
	}

	resp, err := h.uc.PayWithCard.Execute(ctx, dto.PayWithCardRequest{CardID: cardID, Amount: amount})
	if err != nil {
		return nil, h.toStatus(ctx, "PayWithCard", err)
	}

	allocations := make([]*AllocationMsg, 0, len(resp.Allocations))
	for _, a := range resp.Allocations {
		allocations = append(allocations, &AllocationMsg{
			AccountID:     a.AccountID.String(),
			NumberAccount: a.NumberAccount,
			TransactionID: a.TransactionID.String(),
			Share:         a.Share.String(),
			Balance:       a.Balance.String(),
		})
	}
	return &PayWithCardResponse{
		CardID:      resp.CardID.String(),
		Requested:   resp.Requested.String(),
		TotalDrawn:  resp.TotalDrawn.String(),
		Allocations: allocations,
	}, nil
}

// toStatus maps use case errors onto gRPC status codes. Unexpected errors
// are logged and hidden behind codes.Internal.
func (h *DebitCardHandler) toStatus(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, model.ErrCardNotFound), errors.Is(err, model.ErrAccountNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, model.ErrInvalidCard), errors.Is(err, model.ErrInvalidAmount):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrPrimaryAccountAlreadyAssigned),
		errors.Is(err, model.ErrNoPrimaryAccount),
		errors.Is(err, model.ErrCardNotUsable),
		errors.Is(err, model.ErrAccountNotLinked):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, model.ErrConcurrentModification):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded:
			return status.Error(st.Code(), err.Error())
		}
	}

	h.logger.ErrorContext(ctx, "request failed",
		slog.String("method", method),
		slog.String("error", err.Error()),
	)
	return status.Error(codes.Internal, "internal error")
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s: %v", field, err)
	}
	return id, nil
}

// isCustomerOnly reports whether the caller acts as a customer without any
// staff or service role.
func isCustomerOnly(ctx context.Context) bool {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return false
	}
	return claims.HasRole(auth.RoleCustomer) &&
		!claims.HasAnyRole(auth.RoleAdmin, auth.RoleOperator, auth.RoleService)
}

func requireOwner(ctx context.Context, customerID uuid.UUID) error {
	if !isCustomerOnly(ctx) {
		return nil
	}
	claims, _ := auth.ClaimsFromContext(ctx)
	if claims.CustomerID != customerID {
		return status.Error(codes.PermissionDenied, "card belongs to another customer")
	}
	return nil
}

func toCardMsg(c dto.CardResponse) *CardMsg {
	msg := &CardMsg{
		ID:          c.ID.String(),
		CustomerID:  c.CustomerID.String(),
		Status:      c.Status,
		LastFour:    c.LastFour,
		ExpiryMonth: c.ExpiryMonth,
		ExpiryYear:  c.ExpiryYear,
		Version:     c.Version,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if c.PrimaryAccountID != nil {
		msg.PrimaryAccountID = c.PrimaryAccountID.String()
	}
	return msg
}
