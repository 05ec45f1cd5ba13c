package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SettlementMetrics records settlement outcomes and gateway latency
type SettlementMetrics struct {
	attempts metric.Int64Counter
	amount   metric.Float64Counter
	verify   metric.Float64Histogram
}

// NewSettlementMetrics registers the settlement instruments on meter
func NewSettlementMetrics(meter metric.Meter) (*SettlementMetrics, error) {
	attempts, err := meter.Int64Counter("settlement_attempts_total",
		metric.WithDescription("Settle calls by payment kind and outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create settlement_attempts_total: %w", err)
	}

	amount, err := meter.Float64Counter("settlement_amount_total",
		metric.WithDescription("Naira settled by payment kind"),
		metric.WithUnit("NGN"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create settlement_amount_total: %w", err)
	}

	verify, err := meter.Float64Histogram("gateway_verify_duration_seconds",
		metric.WithDescription("Payment gateway verification latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway_verify_duration_seconds: %w", err)
	}

	return &SettlementMetrics{attempts: attempts, amount: amount, verify: verify}, nil
}

// RecordSettlement counts one Settle outcome. Only completed settlements add to the amount.
func (m *SettlementMetrics) RecordSettlement(ctx context.Context, kind, outcome string, amount decimal.Decimal) {
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	)
	m.attempts.Add(ctx, 1, attrs)
	if outcome == "completed" && amount.IsPositive() {
		m.amount.Add(ctx, amount.InexactFloat64(), metric.WithAttributes(attribute.String("kind", kind)))
	}
}

// RecordVerification observes one gateway verify call
func (m *SettlementMetrics) RecordVerification(ctx context.Context, outcome string, elapsed time.Duration) {
	m.verify.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}
