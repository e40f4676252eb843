package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry instruments for the generation pipeline.
// Instruments come from the global meter provider, so they are no-ops until
// InitOTel installs a real one.
type OTelMetrics struct {
	generations        metric.Int64Counter
	generationDuration metric.Float64Histogram
	limitRejections    metric.Int64Counter
	subscriptions      metric.Int64Counter
}

// NewOTelMetrics creates the generation pipeline instruments
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/platinummonkey/laman")

	m := &OTelMetrics{}
	var err error

	m.generations, err = meter.Int64Counter(
		"laman.generations",
		metric.WithDescription("Page generations by style and outcome"),
		metric.WithUnit("{generation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generations counter: %w", err)
	}

	m.generationDuration, err = meter.Float64Histogram(
		"laman.generation.duration",
		metric.WithDescription("Page generation duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation duration histogram: %w", err)
	}

	m.limitRejections, err = meter.Int64Counter(
		"laman.generation.limit_rejections",
		metric.WithDescription("Generations rejected by the plan limit"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create limit rejections counter: %w", err)
	}

	m.subscriptions, err = meter.Int64Counter(
		"laman.subscription.changes",
		metric.WithDescription("Subscription lifecycle events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription counter: %w", err)
	}

	return m, nil
}

// RecordGeneration records one generation attempt
func (m *OTelMetrics) RecordGeneration(ctx context.Context, style, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("style", style),
		attribute.String("status", status),
	)
	m.generations.Add(ctx, 1, attrs)
	m.generationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("style", style)))
}

// RecordLimitRejection records a generation refused by the plan limit
func (m *OTelMetrics) RecordLimitRejection(ctx context.Context, plan string) {
	if m == nil {
		return
	}
	m.limitRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("plan", plan)))
}

// RecordSubscriptionChange records subscribe, cancel and rollover events
func (m *OTelMetrics) RecordSubscriptionChange(ctx context.Context, action, plan string) {
	if m == nil {
		return
	}
	m.subscriptions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("plan", plan),
	))
}
