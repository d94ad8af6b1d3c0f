// Package haptrace wires OpenTelemetry tracing into a reverse-proxy request
// pipeline: it resolves the exporter configuration from module options and
// environment overrides, bootstraps the batching export pipeline once per
// worker process, and registers the tracing actions and filter with the
// host core.
package haptrace

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/haptrace/haptrace/internal/config"
	"github.com/haptrace/haptrace/internal/correlation"
	"github.com/haptrace/haptrace/internal/engine"
	"github.com/haptrace/haptrace/internal/host"
	"github.com/haptrace/haptrace/internal/logging"
	"github.com/haptrace/haptrace/internal/telemetry"
)

// Hook names as referenced from the host configuration.
const (
	ActionStartServerSpan  = "start_server_span"
	ActionSetSpanAttribute = "set_span_attribute_var"
	FilterName             = "opentelemetry-trace"
)

// Module is a registered tracing module. Shutdown flushes and stops the
// export pipeline.
type Module struct {
	Engine    *engine.Engine
	telemetry *telemetry.Telemetry
	logger    *zap.Logger
}

// Register resolves configuration, initializes the export pipeline and
// installs the module's hooks. Any initialization or registration failure
// leaves the module inactive: no hooks fire and no per-request work happens.
func Register(ctx context.Context, core host.Core, opts *config.Options) (*Module, error) {
	environ, err := config.LoadEnviron()
	if err != nil {
		return nil, fmt.Errorf("loading environment overrides: %w", err)
	}
	resolved := config.Resolve(opts, environ)

	logger := logging.New(resolved.LogLevel.Value)
	for _, warning := range resolved.Warnings {
		logger.Warn(warning)
	}

	tel, err := telemetry.New(ctx, resolved, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	cache, err := correlation.New(correlation.DefaultCapacity, engine.OnCacheEviction)
	if err != nil {
		return nil, fmt.Errorf("creating correlation cache: %w", err)
	}

	eng := engine.New(engine.Config{
		Tracer:         tel.Tracer(),
		Propagator:     tel.Propagator(),
		Cache:          cache,
		Logger:         logger,
		SilentSampling: resolved.Sampler.Value == config.SamplerSilentOn,
	})

	err = core.RegisterAction(ActionStartServerSpan,
		[]host.ActionScope{host.ScopeHTTPRequest}, 0,
		func(txn host.Transaction, _ []string) error {
			return eng.StartServerSpan(txn)
		})
	if err != nil {
		return nil, fmt.Errorf("registering %s: %w", ActionStartServerSpan, err)
	}

	err = core.RegisterAction(ActionSetSpanAttribute,
		[]host.ActionScope{host.ScopeHTTPRequest, host.ScopeHTTPResponse, host.ScopeHTTPAfterResponse}, 2,
		func(txn host.Transaction, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("%s expects 2 arguments, got %d", ActionSetSpanAttribute, len(args))
			}
			return eng.SetSpanAttribute(txn, args[0], args[1])
		})
	if err != nil {
		return nil, fmt.Errorf("registering %s: %w", ActionSetSpanAttribute, err)
	}

	if err := core.RegisterFilter(FilterName, eng.NewFilter); err != nil {
		return nil, fmt.Errorf("registering filter %s: %w", FilterName, err)
	}

	return &Module{Engine: eng, telemetry: tel, logger: logger}, nil
}

// Flush exports all pending spans.
func (m *Module) Flush(ctx context.Context) error {
	return m.telemetry.ForceFlush(ctx)
}

// Shutdown flushes pending spans and stops the export pipeline.
func (m *Module) Shutdown(ctx context.Context) error {
	err := m.telemetry.Shutdown(ctx)
	_ = m.logger.Sync()
	return err
}
