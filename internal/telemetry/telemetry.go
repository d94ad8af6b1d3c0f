// Package telemetry bootstraps the span export pipeline once per worker
// process: it builds the OTLP exporter for the resolved protocol, installs
// the batching tracer provider, the global propagator and the sampler, and
// emits the one-line startup diagnostic.
//
// Request-handling code never waits on export: finished spans are handed to
// the batch processor and shipped by its background goroutine.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/haptrace/haptrace/internal/config"
)

// ScopeName is the instrumentation scope for spans produced by this module.
const ScopeName = "github.com/haptrace/haptrace"

// Telemetry owns the tracer provider and its export pipeline.
type Telemetry struct {
	cfg      *config.Resolved
	provider *sdktrace.TracerProvider
	prop     propagation.TextMapPropagator
}

// New constructs the export pipeline from resolved configuration. An
// exporter construction failure is fatal to module activation and is
// returned to the caller; nothing is installed globally in that case.
func New(ctx context.Context, cfg *config.Resolved, logger *zap.Logger) (*Telemetry, error) {
	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.Sampler.Value)),
	)
	otel.SetTracerProvider(provider)

	prop := propagatorFor(cfg.Propagator.Value)
	otel.SetTextMapPropagator(prop)

	logger.Info("opentelemetry module initialized",
		zap.String("service", cfg.ServiceName),
		zap.String("protocol", string(cfg.Protocol.Value)),
		zap.String("protocol_source", cfg.Protocol.Source.String()),
		zap.String("endpoint", cfg.Endpoint.Value),
		zap.String("endpoint_source", cfg.Endpoint.Source.String()),
		zap.String("propagator", string(cfg.Propagator.Value)),
		zap.String("sampler", string(cfg.Sampler.Value)),
		zap.String("log_level", cfg.LogLevel.Value.String()),
	)

	return &Telemetry{cfg: cfg, provider: provider, prop: prop}, nil
}

// Tracer returns the module's tracer.
func (t *Telemetry) Tracer() trace.Tracer {
	return t.provider.Tracer(ScopeName)
}

// Propagator returns the configured propagator.
func (t *Telemetry) Propagator() propagation.TextMapPropagator {
	return t.prop
}

// ForceFlush immediately exports all pending spans.
func (t *Telemetry) ForceFlush(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	if err := t.provider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("trace flush: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the export pipeline.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	if err := t.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("trace provider shutdown: %w", err)
	}
	return nil
}
