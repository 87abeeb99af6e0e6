// Package remote holds the gRPC clients for the account and transaction
// services. Both services speak JSON over gRPC, so the clients invoke
// methods by name instead of through generated stubs.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/bibbank/debitcard/pkg/grpcjson"
)

// ConnConfig describes one backend service.
type ConnConfig struct {
	Name string
	Addr string
	// Creds secures the connection; nil dials in plaintext.
	Creds credentials.TransportCredentials
	// Timeout bounds every call that has no earlier deadline; zero disables it.
	Timeout time.Duration
}

// Conn is a client connection to one backend service.
type Conn struct {
	name    string
	timeout time.Duration
	conn    *grpc.ClientConn
	breaker *Breaker
	logger  *slog.Logger
}

// Dial opens a connection to a backend service. Calls go through breaker
// when it is not nil.
func Dial(cfg ConnConfig, breaker *Breaker, logger *slog.Logger, opts ...grpc.DialOption) (*Conn, error) {
	creds := cfg.Creds
	if creds == nil {
		creds = insecure.NewCredentials()
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, opts...)

	cc, err := grpc.NewClient(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s at %s: %w", cfg.Name, cfg.Addr, err)
	}

	logger.Info("connected to backend service", "service", cfg.Name, "addr", cfg.Addr)

	return &Conn{name: cfg.Name, timeout: cfg.Timeout, conn: cc, breaker: breaker, logger: logger}, nil
}

// Close closes the underlying gRPC connection.
func (c *Conn) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// invoke calls method through the breaker using the JSON codec.
func (c *Conn) invoke(ctx context.Context, method string, req, resp any) error {
	if c == nil || c.conn == nil {
		return status.Error(codes.Unavailable, "backend service not connected")
	}
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	call := func() error {
		return c.conn.Invoke(ctx, method, req, resp, grpcjson.CallOption())
	}
	if c.breaker == nil {
		return call()
	}
	return c.breaker.Execute(call)
}
