// Package telemetry records pipeline and timeout metrics through
// OpenTelemetry. All instruments are optional: components that are not
// handed a *Metrics simply skip recording.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName scopes the module's instruments.
const meterName = "github.com/skillsenselab/resilix"

// Metrics holds the module's metric instruments.
type Metrics struct {
	timeouts  metric.Int64Counter
	builds    metric.Int64Counter
	reloads   metric.Int64Counter
	disposals metric.Int64Counter
}

// New creates the instrument set on the given meter.
func New(meter metric.Meter) (*Metrics, error) {
	timeouts, err := meter.Int64Counter("resilix.timeouts",
		metric.WithDescription("Executions rejected by the timeout strategy"))
	if err != nil {
		return nil, fmt.Errorf("creating timeouts counter: %w", err)
	}
	builds, err := meter.Int64Counter("resilix.pipeline.builds",
		metric.WithDescription("Pipeline instances built by the registry"))
	if err != nil {
		return nil, fmt.Errorf("creating builds counter: %w", err)
	}
	reloads, err := meter.Int64Counter("resilix.pipeline.reloads",
		metric.WithDescription("Pipeline reload attempts, tagged by outcome"))
	if err != nil {
		return nil, fmt.Errorf("creating reloads counter: %w", err)
	}
	disposals, err := meter.Int64Counter("resilix.registry.disposals",
		metric.WithDescription("Registry disposals"))
	if err != nil {
		return nil, fmt.Errorf("creating disposals counter: %w", err)
	}

	return &Metrics{
		timeouts:  timeouts,
		builds:    builds,
		reloads:   reloads,
		disposals: disposals,
	}, nil
}

// Default creates the instrument set on the global meter provider.
func Default() (*Metrics, error) {
	return New(otel.Meter(meterName))
}

// RecordTimeout records a timeout rejection for an operation.
func (m *Metrics) RecordTimeout(ctx context.Context, operation string, timeout time.Duration) {
	m.timeouts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("timeout", timeout.String()),
	))
}

// RecordBuild records a successful pipeline build for a key.
func (m *Metrics) RecordBuild(ctx context.Context, key string) {
	m.builds.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key", key),
	))
}

// RecordReload records a reload attempt for a key.
func (m *Metrics) RecordReload(ctx context.Context, key string, success bool) {
	m.reloads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key", key),
		attribute.Bool("success", success),
	))
}

// RecordDisposal records a registry disposal.
func (m *Metrics) RecordDisposal(ctx context.Context) {
	m.disposals.Add(ctx, 1)
}
