// Package telemetry records the service's business metrics through the
// OpenTelemetry meter API.
package telemetry

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/bibbank/debitcard"

// Metrics implements port.MetricsRecorder.
type Metrics struct {
	payments          metric.Int64Counter
	paymentFailures   metric.Int64Counter
	requestedAmount   metric.Float64Counter
	drawnAmount       metric.Float64Counter
	participants      metric.Int64Histogram
	shortfalls        metric.Int64Counter
	primaryAssociated metric.Int64Counter
}

// NewMetrics creates the instruments on provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(meterName)
	m := &Metrics{}
	var err error

	if m.payments, err = meter.Int64Counter("debitcard_payments_total",
		metric.WithDescription("Card payments completed")); err != nil {
		return nil, fmt.Errorf("create payments counter: %w", err)
	}
	if m.paymentFailures, err = meter.Int64Counter("debitcard_payment_failures_total",
		metric.WithDescription("Card payment steps that failed")); err != nil {
		return nil, fmt.Errorf("create payment failures counter: %w", err)
	}
	if m.requestedAmount, err = meter.Float64Counter("debitcard_payment_requested_amount",
		metric.WithDescription("Sum of amounts requested by card payments")); err != nil {
		return nil, fmt.Errorf("create requested amount counter: %w", err)
	}
	if m.drawnAmount, err = meter.Float64Counter("debitcard_payment_drawn_amount",
		metric.WithDescription("Sum of amounts drawn from accounts")); err != nil {
		return nil, fmt.Errorf("create drawn amount counter: %w", err)
	}
	if m.participants, err = meter.Int64Histogram("debitcard_payment_participants",
		metric.WithDescription("Accounts drawn from per payment"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 8)); err != nil {
		return nil, fmt.Errorf("create participants histogram: %w", err)
	}
	if m.shortfalls, err = meter.Int64Counter("debitcard_payment_shortfalls_total",
		metric.WithDescription("Payments not fully covered by linked accounts")); err != nil {
		return nil, fmt.Errorf("create shortfalls counter: %w", err)
	}
	if m.primaryAssociated, err = meter.Int64Counter("debitcard_primary_account_associations_total",
		metric.WithDescription("Primary account association attempts by path and outcome")); err != nil {
		return nil, fmt.Errorf("create associations counter: %w", err)
	}

	return m, nil
}

// PaymentCompleted records a finished allocation.
func (m *Metrics) PaymentCompleted(ctx context.Context, requested, drawn decimal.Decimal, participants int) {
	m.payments.Add(ctx, 1)
	m.requestedAmount.Add(ctx, requested.InexactFloat64())
	m.drawnAmount.Add(ctx, drawn.InexactFloat64())
	m.participants.Record(ctx, int64(participants))
	if drawn.LessThan(requested) {
		m.shortfalls.Add(ctx, 1)
	}
}

// PaymentFailed records a payment aborted at step.
func (m *Metrics) PaymentFailed(ctx context.Context, step string) {
	m.paymentFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
}

// PrimaryAccountAssociation records one association attempt.
func (m *Metrics) PrimaryAccountAssociation(ctx context.Context, path, outcome string) {
	m.primaryAssociated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("outcome", outcome),
	))
}
