package grpc

// proto.go declares bib.debitcard.v1.DebitCardService by hand. Messages are
// plain structs carried by the JSON codec in pkg/grpcjson.

import (
	"context"

	grpclib "google.golang.org/grpc"

	_ "github.com/bibbank/debitcard/pkg/grpcjson"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "bib.debitcard.v1.DebitCardService"

// DebitCardServiceServer is the server API for DebitCardService.
type DebitCardServiceServer interface {
	RegisterCard(context.Context, *RegisterCardRequest) (*CardResponse, error)
	UpdateCard(context.Context, *UpdateCardRequest) (*CardResponse, error)
	DeleteCard(context.Context, *CardIDRequest) (*DeleteCardResponse, error)
	GetCard(context.Context, *CardIDRequest) (*CardResponse, error)
	ListCards(context.Context, *ListCardsRequest) (*ListCardsResponse, error)
	AssociatePrimaryAccount(context.Context, *AssociatePrimaryAccountRequest) (*CardResponse, error)
	AssociatePrimaryAccountAsync(context.Context, *AssociatePrimaryAccountRequest) (*CardResponse, error)
	GetPrimaryAccountBalance(context.Context, *CardIDRequest) (*PrimaryAccountBalanceResponse, error)
	PayWithCard(context.Context, *PayWithCardRequest) (*PayWithCardResponse, error)
}

// RegisterCardRequest represents the RegisterCardRequest message.
type RegisterCardRequest struct {
	CardNumber string `json:"card_number"`
	Expiry     string `json:"expiry"`
	CustomerID string `json:"customer_id"`
}

// UpdateCardRequest represents the UpdateCardRequest message. Empty fields
// keep their stored value; a zero version skips the version check.
type UpdateCardRequest struct {
	CardID     string `json:"card_id"`
	CardNumber string `json:"card_number,omitempty"`
	Expiry     string `json:"expiry,omitempty"`
	Status     string `json:"status,omitempty"`
	Version    int    `json:"version,omitempty"`
}

// CardIDRequest carries a single card id.
type CardIDRequest struct {
	CardID string `json:"card_id"`
}

// DeleteCardResponse is empty.
type DeleteCardResponse struct{}

// ListCardsRequest represents the ListCardsRequest message.
type ListCardsRequest struct {
	PageSize int `json:"page_size,omitempty"`
	Offset   int `json:"offset,omitempty"`
}

// ListCardsResponse represents the ListCardsResponse message.
type ListCardsResponse struct {
	Cards      []*CardMsg `json:"cards"`
	TotalCount int        `json:"total_count"`
}

// AssociatePrimaryAccountRequest represents the AssociatePrimaryAccountRequest message.
type AssociatePrimaryAccountRequest struct {
	AccountID string `json:"account_id"`
}

// CardResponse wraps a single card.
type CardResponse struct {
	Card *CardMsg `json:"card"`
}

// CardMsg represents the Card message.
type CardMsg struct {
	ID               string `json:"id"`
	CustomerID       string `json:"customer_id"`
	PrimaryAccountID string `json:"primary_account_id,omitempty"`
	Status           string `json:"status"`
	LastFour         string `json:"last_four"`
	ExpiryMonth      string `json:"expiry_month"`
	ExpiryYear       string `json:"expiry_year"`
	Version          int    `json:"version"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// PrimaryAccountBalanceResponse represents the PrimaryAccountBalanceResponse message.
type PrimaryAccountBalanceResponse struct {
	CardID    string `json:"card_id"`
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

// PayWithCardRequest represents the PayWithCardRequest message.
type PayWithCardRequest struct {
	CardID string `json:"card_id"`
	Amount string `json:"amount"`
}

// PayWithCardResponse lists the drawn accounts in priority order.
type PayWithCardResponse struct {
	CardID      string           `json:"card_id"`
	Requested   string           `json:"requested"`
	TotalDrawn  string           `json:"total_drawn"`
	Allocations []*AllocationMsg `json:"allocations"`
}

// AllocationMsg represents the draw on one account.
type AllocationMsg struct {
	AccountID     string `json:"account_id"`
	NumberAccount string `json:"number_account"`
	TransactionID string `json:"transaction_id"`
	Share         string `json:"share"`
	Balance       string `json:"balance"`
}

// RegisterDebitCardServiceServer registers srv with the gRPC server.
func RegisterDebitCardServiceServer(s grpclib.ServiceRegistrar, srv DebitCardServiceServer) {
	s.RegisterService(&debitCardServiceDesc, srv)
}

// FullMethod returns the full gRPC method name of a DebitCardService method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

var debitCardServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DebitCardServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		unaryMethod("RegisterCard", DebitCardServiceServer.RegisterCard),
		unaryMethod("UpdateCard", DebitCardServiceServer.UpdateCard),
		unaryMethod("DeleteCard", DebitCardServiceServer.DeleteCard),
		unaryMethod("GetCard", DebitCardServiceServer.GetCard),
		unaryMethod("ListCards", DebitCardServiceServer.ListCards),
		unaryMethod("AssociatePrimaryAccount", DebitCardServiceServer.AssociatePrimaryAccount),
		unaryMethod("AssociatePrimaryAccountAsync", DebitCardServiceServer.AssociatePrimaryAccountAsync),
		unaryMethod("GetPrimaryAccountBalance", DebitCardServiceServer.GetPrimaryAccountBalance),
		unaryMethod("PayWithCard", DebitCardServiceServer.PayWithCard),
	},
	Streams: []grpclib.StreamDesc{},
}

// unaryMethod builds the MethodDesc that decodes Req, runs interceptors and
// dispatches to call.
func unaryMethod[Req, Resp any](
	name string,
	call func(DebitCardServiceServer, context.Context, *Req) (*Resp, error),
) grpclib.MethodDesc {
	fullMethod := FullMethod(name)
	return grpclib.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DebitCardServiceServer), ctx, in)
			}
			info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DebitCardServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
