package usecase

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/bibbank/debitcard/internal/application/usecase")

type noopMetrics struct{}

func (noopMetrics) PaymentCompleted(context.Context, decimal.Decimal, decimal.Decimal, int) {}
func (noopMetrics) PaymentFailed(context.Context, string)                                   {}
func (noopMetrics) PrimaryAccountAssociation(context.Context, string, string)               {}
