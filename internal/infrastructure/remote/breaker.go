package remote

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// BreakerConfig tunes when a breaker trips and how long it stays open.
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
	FailureRatio        float64
	MinRequests         uint32
}

// DefaultBreakerConfig returns settings suited to the account and
// transaction services.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         3,
		Interval:            time.Minute,
		Timeout:             15 * time.Second,
		ConsecutiveFailures: 5,
		FailureRatio:        0.5,
		MinRequests:         10,
	}
}

// Breaker fails calls fast while a backend service is unhealthy.
type Breaker struct {
	name   string
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewBreaker creates a circuit breaker for the named service.
func NewBreaker(name string, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	b := &Breaker{name: name, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "service-" + name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"service", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return b
}

// Execute runs fn unless the breaker is open. Rejected calls fail with
// codes.Unavailable.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		b.logger.Warn("circuit breaker open, request rejected", "service", b.name)
		return status.Errorf(codes.Unavailable, "service %s is currently unavailable (circuit breaker open)", b.name)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return status.Errorf(codes.Unavailable, "service %s is recovering (too many requests)", b.name)
	}
	return err
}

// Name returns the service the breaker guards.
func (b *Breaker) Name() string {
	return b.name
}

// State reports the breaker state, e.g. "closed" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// isBreakerSuccess treats answers from a healthy server as successes, even
// when the answer is an error such as NotFound.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Internal, codes.Unknown, codes.ResourceExhausted:
		return false
	default:
		return true
	}
}
