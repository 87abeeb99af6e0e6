package remote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/bibbank/debitcard/internal/domain/model"
	"github.com/bibbank/debitcard/pkg/grpcjson"
)

type handlerFunc func(req json.RawMessage) (any, error)

// fakeBackend answers JSON gRPC calls by full method name.
type fakeBackend struct {
	mu       sync.Mutex
	handlers map[string]handlerFunc
	calls    map[string][]json.RawMessage
}

func (f *fakeBackend) handle(_ any, stream grpc.ServerStream) error {
	method, _ := grpc.MethodFromServerStream(stream)

	var req json.RawMessage
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}

	f.mu.Lock()
	f.calls[method] = append(f.calls[method], req)
	h, ok := f.handlers[method]
	f.mu.Unlock()

	if !ok {
		return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
	}
	resp, err := h(req)
	if err != nil {
		return err
	}
	return stream.SendMsg(resp)
}

func (f *fakeBackend) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls[method])
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startBackend(t *testing.T, handlers map[string]handlerFunc, breaker *Breaker) (*Conn, *fakeBackend) {
	t.Helper()

	backend := &fakeBackend{handlers: handlers, calls: map[string][]json.RawMessage{}}
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(
		grpc.ForceServerCodec(grpcjson.Codec{}),
		grpc.UnknownServiceHandler(backend.handle),
	)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := Dial(ConnConfig{Name: "test", Addr: "passthrough:///bufnet", Timeout: 5 * time.Second}, breaker, testLogger(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn, backend
}

func TestAccountClient_Get(t *testing.T) {
	accountID := uuid.New()
	cardID := uuid.New()
	customerID := uuid.New()
	assoc := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	conn, backend := startBackend(t, map[string]handlerFunc{
		methodGetAccount: func(raw json.RawMessage) (any, error) {
			var req accountIDReq
			if err := json.Unmarshal(raw, &req); err != nil {
				return nil, err
			}
			if req.AccountID != accountID.String() {
				return nil, status.Error(codes.NotFound, "no such account")
			}
			return accountMsg{
				ID:               accountID.String(),
				NumberAccount:    "ACC-001",
				Amount:           decimal.RequireFromString("120.50"),
				CustomerID:       customerID.String(),
				Type:             "savings",
				DebitCardID:      cardID.String(),
				IsPrimaryAccount: true,
				AssociationDate:  &assoc,
			}, nil
		},
	}, nil)

	client := NewAccountClient(conn)

	t.Run("found", func(t *testing.T) {
		acc, err := client.Get(context.Background(), accountID)
		require.NoError(t, err)

		assert.Equal(t, accountID, acc.ID)
		assert.Equal(t, "ACC-001", acc.NumberAccount)
		assert.True(t, acc.Balance.Equal(decimal.RequireFromString("120.50")))
		assert.Equal(t, customerID, acc.CustomerID)
		require.NotNil(t, acc.DebitCardID)
		assert.Equal(t, cardID, *acc.DebitCardID)
		assert.True(t, acc.IsPrimary)
		assert.True(t, assoc.Equal(acc.AssociationDate))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := client.Get(context.Background(), uuid.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrAccountNotFound)
	})

	assert.Equal(t, 2, backend.callCount(methodGetAccount))
}

func TestAccountClient_ListByCard(t *testing.T) {
	cardID := uuid.New()
	first, second := uuid.New(), uuid.New()

	conn, _ := startBackend(t, map[string]handlerFunc{
		methodListAccountsByCard: func(raw json.RawMessage) (any, error) {
			var req listAccountsByCardReq
			if err := json.Unmarshal(raw, &req); err != nil {
				return nil, err
			}
			if req.DebitCardID != cardID.String() {
				return listAccountsResp{}, nil
			}
			return listAccountsResp{Accounts: []accountMsg{
				{ID: first.String(), Amount: decimal.NewFromInt(10), DebitCardID: cardID.String()},
				{ID: second.String(), Amount: decimal.NewFromInt(0), DebitCardID: cardID.String()},
			}}, nil
		},
	}, nil)

	client := NewAccountClient(conn)

	accounts, err := client.ListByCard(context.Background(), cardID)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, first, accounts[0].ID)
	assert.Equal(t, second, accounts[1].ID)

	empty, err := client.ListByCard(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAccountClient_UpdateSendsNewBalance(t *testing.T) {
	accountID := uuid.New()
	cardID := uuid.New()

	var got updateAccountReq
	conn, _ := startBackend(t, map[string]handlerFunc{
		methodUpdateAccount: func(raw json.RawMessage) (any, error) {
			if err := json.Unmarshal(raw, &got); err != nil {
				return nil, err
			}
			return got.Account, nil
		},
	}, nil)

	client := NewAccountClient(conn)

	updated, err := client.Update(context.Background(), model.Account{
		ID:          accountID,
		DebitCardID: &cardID,
		Balance:     decimal.RequireFromString("7.25"),
	})
	require.NoError(t, err)

	assert.Equal(t, accountID.String(), got.Account.ID)
	assert.Equal(t, cardID.String(), got.Account.DebitCardID)
	assert.True(t, got.Account.Amount.Equal(decimal.RequireFromString("7.25")))
	assert.True(t, updated.Balance.Equal(decimal.RequireFromString("7.25")))
}

func TestAccountClient_MarkPrimary(t *testing.T) {
	accountID := uuid.New()

	conn, backend := startBackend(t, map[string]handlerFunc{
		methodMarkPrimaryAccount: func(raw json.RawMessage) (any, error) {
			var req accountIDReq
			if err := json.Unmarshal(raw, &req); err != nil {
				return nil, err
			}
			return accountMsg{ID: req.AccountID, IsPrimaryAccount: true}, nil
		},
	}, nil)

	acc, err := NewAccountClient(conn).MarkPrimary(context.Background(), accountID)
	require.NoError(t, err)
	assert.True(t, acc.IsPrimary)
	assert.Equal(t, 1, backend.callCount(methodMarkPrimaryAccount))
}

func TestTransactionClient_Create(t *testing.T) {
	txID := uuid.New()
	draft := model.Transaction{
		Date:           time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Amount:         decimal.NewFromInt(40),
		Type:           model.TransactionTypeCardPayment,
		CustomerID:     uuid.New(),
		AccountID:      uuid.New(),
		AccountBalance: decimal.NewFromInt(60),
		CardID:         uuid.New(),
	}

	var got transactionMsg
	conn, _ := startBackend(t, map[string]handlerFunc{
		methodCreateTransaction: func(raw json.RawMessage) (any, error) {
			if err := json.Unmarshal(raw, &got); err != nil {
				return nil, err
			}
			resp := got
			resp.ID = txID.String()
			return resp, nil
		},
	}, nil)

	created, err := NewTransactionClient(conn).Create(context.Background(), draft)
	require.NoError(t, err)

	assert.Equal(t, txID, created.ID)
	assert.Equal(t, "card payment", got.Type)
	assert.Equal(t, draft.AccountID.String(), got.AccountID)
	assert.Equal(t, draft.CardID.String(), got.CardID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(40)))
	assert.True(t, got.AccountAmount.Equal(decimal.NewFromInt(60)))
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultBreakerConfig()
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Hour
	breaker := NewBreaker("account", cfg, testLogger())

	conn, backend := startBackend(t, map[string]handlerFunc{
		methodGetAccount: func(json.RawMessage) (any, error) {
			return nil, status.Error(codes.Unavailable, "ledger down")
		},
	}, breaker)

	client := NewAccountClient(conn)
	ctx := context.Background()

	for range 2 {
		_, err := client.Get(ctx, uuid.New())
		require.Error(t, err)
		assert.Equal(t, codes.Unavailable, status.Code(err))
	}
	assert.Equal(t, "open", breaker.State())

	_, err := client.Get(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, 2, backend.callCount(methodGetAccount))
}

func TestBreaker_BusinessErrorsDoNotTrip(t *testing.T) {
	cfg := DefaultBreakerConfig()
	cfg.ConsecutiveFailures = 1
	breaker := NewBreaker("account", cfg, testLogger())

	conn, _ := startBackend(t, map[string]handlerFunc{
		methodGetAccount: func(json.RawMessage) (any, error) {
			return nil, status.Error(codes.NotFound, "no such account")
		},
	}, breaker)

	client := NewAccountClient(conn)
	for range 3 {
		_, err := client.Get(context.Background(), uuid.New())
		assert.ErrorIs(t, err, model.ErrAccountNotFound)
	}
	assert.Equal(t, "closed", breaker.State())
}

func TestConn_NilIsUnavailable(t *testing.T) {
	var conn *Conn
	err := conn.invoke(context.Background(), methodGetAccount, accountIDReq{}, &accountMsg{})
	assert.Equal(t, codes.Unavailable, status.Code(err))
	assert.NoError(t, conn.Close())
}
