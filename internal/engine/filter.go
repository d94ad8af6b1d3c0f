package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/haptrace/haptrace/internal/host"
)

// requestState tracks where one request is in its span lifecycle. The host
// creates one filter per request, so the state lives in the filter instance;
// the pieces that must survive across unrelated callback invocations (trace
// id, owns-server-span flag) live in scratch storage and the cache.
type requestState int

const (
	stateNoTrace requestState = iota
	stateServerSpanOpen
	stateClientSpanOpen
	stateServerSpanClosed
)

func (s requestState) String() string {
	switch s {
	case stateServerSpanOpen:
		return "server-span-open"
	case stateClientSpanOpen:
		return "client-span-open"
	case stateServerSpanClosed:
		return "server-span-closed"
	default:
		return "no-trace"
	}
}

// TraceFilter implements the request/response hooks for one request stream.
// With no cached context the request stays in stateNoTrace and every hook
// is a no-op.
type TraceFilter struct {
	engine          *Engine
	startClientSpan bool
	state           requestState

	// clientCx carries the open client span. It is ephemeral to one
	// proxying attempt and never stored in the cache.
	clientCx context.Context
}

// NewFilter builds a filter for one request. args is the raw declaration
// argument string; the only recognized option is start_client_span, which
// defaults to true.
func (e *Engine) NewFilter(args string) (host.Filter, error) {
	f := &TraceFilter{engine: e, startClientSpan: true}
	for _, arg := range strings.Split(args, ";") {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) != "start_client_span" {
			continue
		}
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			f.startClientSpan = b
		}
	}
	return f, nil
}

// HTTPHeaders fires on both sides of the exchange: request headers heading
// upstream open the client span, response headers complete it.
func (f *TraceFilter) HTTPHeaders(txn host.Transaction, msg host.Message) error {
	if msg.IsResponse() {
		return f.onResponseHeaders(txn, msg)
	}
	return f.onRequestHeaders(txn, msg)
}

func (f *TraceFilter) onRequestHeaders(txn host.Transaction, msg host.Message) error {
	e := f.engine

	parent, ok := e.getContext(txn)
	if !ok {
		// No active trace for this request; stay in NoTrace.
		return nil
	}
	f.state = stateServerSpanOpen

	if !f.startClientSpan {
		return nil
	}

	method, ok := txn.Fetch("method")
	if !ok {
		return nil
	}
	pathq, _ := txn.Fetch("pathq")
	path, query := splitPathQuery(pathq)

	cx, _ := e.tracer.Start(parent, "upstream",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			semconv.URLPath(path),
			semconv.URLQuery(query),
		),
	)
	f.clientCx = cx
	f.state = stateClientSpanOpen
	spansStarted.WithLabelValues("client").Inc()

	e.prop.Inject(cx, messageCarrier{msg: msg, suppressSampled: e.silentSampling})
	return nil
}

func (f *TraceFilter) onResponseHeaders(txn host.Transaction, msg host.Message) error {
	if f.state != stateClientSpanOpen {
		return nil
	}
	span := trace.SpanFromContext(f.clientCx)
	span.AddEvent("received response headers")

	code, reason := msg.StatusLine()
	span.SetAttributes(semconv.HTTPResponseStatusCode(int(code)))
	if code < 500 {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, reason)
	}

	srvName, _ := txn.Fetch("srv_name")
	span.SetAttributes(attribute.String("haproxy.server.name", srvName))

	span.End(trace.WithTimestamp(time.Now()))
	f.state = stateServerSpanOpen
	return nil
}

// EndAnalyze completes the server span once response analysis ends, for the
// request that owns it. A missing cache entry (double completion, eviction,
// or a request that never started a trace) is a no-op.
func (f *TraceFilter) EndAnalyze(txn host.Transaction, response bool) error {
	if !response {
		return nil
	}
	e := f.engine

	// Upstream never produced response headers; close the client span so
	// it is not lost.
	if f.state == stateClientSpanOpen {
		trace.SpanFromContext(f.clientCx).End()
		f.state = stateServerSpanOpen
	}

	if !txn.GetVarBool(varOwnsServerSpan) {
		return nil
	}
	cx, ok := e.removeContext(txn)
	if !ok {
		return nil
	}
	span := trace.SpanFromContext(cx)

	code, _ := txn.FetchInt("txn_status")
	span.SetAttributes(semconv.HTTPResponseStatusCode(int(code)))
	if code < 500 {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, "5xx status code")
	}

	feName, _ := txn.Fetch("fe_name")
	beName, _ := txn.Fetch("be_name")
	termState, _ := txn.Fetch("txn_sess_term_state")
	span.SetAttributes(
		attribute.String("haproxy.frontend.name", feName),
		attribute.String("haproxy.backend.name", beName),
		attribute.String("haproxy.termination_state", termState),
	)

	span.End(trace.WithTimestamp(time.Now()))
	f.state = stateServerSpanClosed
	return nil
}
