// Package engine implements the span lifecycle for proxied requests: the
// server span wrapping the request, the optional client span wrapping the
// upstream call, and the attribute-setting side actions.
//
// The proxy invokes each phase as an independent callback with no shared
// call stack. Phases of one request find each other through the correlation
// cache, keyed by the hex trace identifier persisted in the transaction's
// scratch storage.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/haptrace/haptrace/internal/correlation"
	"github.com/haptrace/haptrace/internal/host"
)

// Scratch variable names shared with any host-side configuration that
// inspects them. The trace id lets sibling callbacks rediscover the cached
// context; the server-span flag marks the one request that must close it
// and uses the double-underscore private convention.
const (
	varTraceID        = "txn.otel_trace_id"
	varOwnsServerSpan = "txn.__otel_server_span"
)

// Config wires an Engine. Zero-value fields fall back to the process-global
// tracer, propagator and cache.
type Config struct {
	Tracer     trace.Tracer
	Propagator propagation.TextMapPropagator
	Cache      correlation.Cache
	Logger     *zap.Logger
	// SilentSampling suppresses the B3 sampling-decision header when
	// injecting propagation headers (the SilentOn sampler mode).
	SilentSampling bool
}

// Engine drives span creation, enrichment and completion for all requests.
// It is safe for concurrent use; all shared state lives in the cache.
type Engine struct {
	tracer         trace.Tracer
	prop           propagation.TextMapPropagator
	cache          correlation.Cache
	log            *zap.Logger
	silentSampling bool
}

func New(cfg Config) *Engine {
	e := &Engine{
		tracer:         cfg.Tracer,
		prop:           cfg.Propagator,
		cache:          cfg.Cache,
		log:            cfg.Logger,
		silentSampling: cfg.SilentSampling,
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("github.com/haptrace/haptrace")
	}
	if e.prop == nil {
		e.prop = otel.GetTextMapPropagator()
	}
	if e.cache == nil {
		e.cache = correlation.Default()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// StartServerSpan begins the trace for a request: it extracts the parent
// context from the allow-listed propagation headers, opens a server span,
// and stores the resulting context in the cache under the span's hex trace
// id, which it also persists into the transaction's scratch storage.
//
// Registered as the start_server_span action on the request side. Calling
// it twice for one request overwrites the cached context, last write wins.
func (e *Engine) StartServerSpan(txn host.Transaction) error {
	carrier := extractTracingHeaders(txn)
	parent := e.prop.Extract(context.Background(), carrier)

	method, ok := txn.Fetch("method")
	if !ok {
		return fmt.Errorf("sample fetch %q unavailable", "method")
	}
	pathq, ok := txn.Fetch("pathq")
	if !ok {
		return fmt.Errorf("sample fetch %q unavailable", "pathq")
	}
	peerAddr, _ := txn.Fetch("src")
	hostHeader := carrier.Get("host")
	path, query := splitPathQuery(pathq)

	cx, span := e.tracer.Start(parent, method+" "+hostHeader,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithTimestamp(time.Now()),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			semconv.URLPath(path),
			semconv.URLQuery(query),
			attribute.String("http.request.header.host", hostHeader),
			semconv.NetworkPeerAddress(peerAddr),
		),
	)

	traceID := span.SpanContext().TraceID().String()
	txn.SetVarBool(varOwnsServerSpan, true)
	e.storeContext(txn, traceID, cx)
	spansStarted.WithLabelValues("server").Inc()
	return nil
}

// SetSpanAttribute sets a caller-named attribute on the request's active
// span, reading the value from a named scratch variable. A missing variable
// or a request with no active trace is a silent no-op.
//
// Registered as the set_span_attribute_var action on all HTTP sides.
func (e *Engine) SetSpanAttribute(txn host.Transaction, name, varName string) error {
	value, ok := txn.GetVar(varName)
	if !ok {
		return nil
	}
	cx, ok := e.getContext(txn)
	if !ok {
		return nil
	}
	trace.SpanFromContext(cx).SetAttributes(attribute.String(name, value))
	return nil
}

// storeContext makes the context discoverable by the request's later
// phases: the trace id goes into scratch storage, the context into the
// process-wide cache under that id.
func (e *Engine) storeContext(txn host.Transaction, traceID string, cx context.Context) {
	txn.SetVar(varTraceID, traceID)
	e.cache.Store(traceID, cx)
}

// getContext recovers the cached context for this request. An unset trace
// id means the request never started a trace; a set id with no cache entry
// means the entry was evicted or already completed, counted as a miss.
func (e *Engine) getContext(txn host.Transaction) (context.Context, bool) {
	traceID, ok := txn.GetVar(varTraceID)
	if !ok || traceID == "" {
		return nil, false
	}
	cx, ok := e.cache.Get(traceID)
	if !ok {
		correlationMisses.Inc()
		e.log.Debug("no cached trace context", zap.String("trace_id", traceID))
	}
	return cx, ok
}

// removeContext destructively takes the cached context, used exactly once
// at the terminal phase.
func (e *Engine) removeContext(txn host.Transaction) (context.Context, bool) {
	traceID, ok := txn.GetVar(varTraceID)
	if !ok || traceID == "" {
		return nil, false
	}
	return e.cache.Remove(traceID)
}

// splitPathQuery splits a path-with-query sample on the first '?'.
func splitPathQuery(pathq string) (path, query string) {
	path, query, _ = strings.Cut(pathq, "?")
	return path, query
}
