package engine

import (
	"strings"

	"go.opentelemetry.io/otel/propagation"

	"github.com/haptrace/haptrace/internal/host"
)

// tracingHeaderAllowed reports whether a request header may be handed to the
// propagator for parent-context extraction. Arbitrary request headers must
// never leak into the propagator; only the propagation-context families are
// passed (W3C, B3 single/multi, vendor "uber" ids), plus Host, which the
// server span records as an attribute.
func tracingHeaderAllowed(name string) bool {
	switch name {
	case "host", "traceparent", "tracestate", "b3":
		return true
	}
	return strings.HasPrefix(name, "x-b3") || strings.HasPrefix(name, "uber")
}

// extractTracingHeaders collects the allow-listed request headers into a
// carrier for the propagator. Header names are lowercased; for repeated
// headers the last value wins.
func extractTracingHeaders(txn host.Transaction) propagation.MapCarrier {
	carrier := propagation.MapCarrier{}
	txn.VisitRequestHeaders(func(name, value string) {
		name = strings.ToLower(name)
		if tracingHeaderAllowed(name) {
			carrier[name] = value
		}
	})
	return carrier
}

// messageCarrier writes propagation headers onto an outgoing message. When
// suppressSampled is set (SilentOn sampler) the B3 sampling-decision header
// is dropped so downstream systems see trace linkage without being forced
// to sample; all other propagation headers are still written.
type messageCarrier struct {
	msg             host.Message
	suppressSampled bool
}

func (c messageCarrier) Get(string) string { return "" }

func (c messageCarrier) Set(key, value string) {
	if c.suppressSampled && strings.EqualFold(key, "x-b3-sampled") {
		return
	}
	_ = c.msg.SetHeader(key, value)
}

func (c messageCarrier) Keys() []string { return nil }
