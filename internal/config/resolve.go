package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/haptrace/haptrace/internal/logging"
)

// Protocol selects the OTLP transport.
type Protocol string

const (
	ProtocolGRPC         Protocol = "grpc"
	ProtocolHTTPProtobuf Protocol = "http/protobuf"
	ProtocolHTTPJSON     Protocol = "http/json"
)

// Sampler names a sampling strategy. SilentOn samples like AlwaysOn but
// suppresses the sampling-decision header on injection.
type Sampler string

const (
	SamplerAlwaysOn    Sampler = "AlwaysOn"
	SamplerSilentOn    Sampler = "SilentOn"
	SamplerAlwaysOff   Sampler = "AlwaysOff"
	SamplerParentBased Sampler = "ParentBased"
)

// Propagator names a trace-context header format.
type Propagator string

const (
	PropagatorW3C    Propagator = "w3c"
	PropagatorJaeger Propagator = "jaeger"
	PropagatorZipkin Propagator = "zipkin"
)

// Source records which layer produced a resolved value.
type Source int

const (
	SourceDefault Source = iota
	SourceGeneralEnv
	SourceSignalEnv
	SourceConfig
)

func (s Source) String() string {
	switch s {
	case SourceConfig:
		return "config"
	case SourceSignalEnv:
		return "environment (traces)"
	case SourceGeneralEnv:
		return "environment"
	default:
		return "default"
	}
}

// Setting pairs a resolved value with its provenance.
type Setting[T any] struct {
	Value  T
	Source Source
}

// Default endpoints per the OTLP spec, chosen by protocol.
const (
	defaultHTTPEndpoint = "http://localhost:4318"
	defaultGRPCEndpoint = "http://localhost:4317"
	tracesPath          = "v1/traces"

	// DefaultServiceName is reported when the module options carry no name.
	DefaultServiceName = "haproxy"
)

// Resolved is the immutable configuration snapshot computed once at startup
// and shared read-only across all worker threads.
type Resolved struct {
	ServiceName string
	Protocol    Setting[Protocol]
	// Endpoint is the final traces endpoint: for HTTP protocols the base
	// URL with /v1/traces appended, unless it came from the signal-specific
	// override, which is already fully qualified.
	Endpoint   Setting[string]
	Propagator Setting[Propagator]
	Sampler    Setting[Sampler]
	LogLevel   Setting[zapcore.Level]

	// Warnings collects non-fatal resolution diagnostics (unrecognized
	// strategy or level names) for the caller to log.
	Warnings []string
}

// Resolve computes the configuration snapshot. It never fails: every value
// that is absent or unrecognized at all precedence levels falls through to
// its default. opts and environ may be nil.
func Resolve(opts *Options, environ *Environ) *Resolved {
	if opts == nil {
		opts = &Options{}
	}
	r := &Resolved{ServiceName: opts.Name}
	if r.ServiceName == "" {
		r.ServiceName = DefaultServiceName
	}

	r.Protocol = resolveProtocol(opts, environ, r)
	r.Endpoint = resolveEndpoint(opts, environ, r.Protocol.Value)
	r.Sampler = resolveSampler(opts, environ, r)
	r.Propagator = resolvePropagator(opts, environ, r)
	r.LogLevel = resolveLogLevel(environ, r)
	return r
}

func (r *Resolved) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ParseProtocol parses a protocol token, case-insensitively. The legacy
// single-word values binary and json map onto the current tokens.
func ParseProtocol(s string) (Protocol, bool) {
	switch strings.ToLower(s) {
	case "grpc":
		return ProtocolGRPC, true
	case "http/protobuf", "binary":
		return ProtocolHTTPProtobuf, true
	case "http/json", "json":
		return ProtocolHTTPJSON, true
	default:
		return "", false
	}
}

func resolveProtocol(opts *Options, environ *Environ, r *Resolved) Setting[Protocol] {
	candidates := []struct {
		raw    string
		source Source
	}{
		{opts.OTLP.Protocol, SourceConfig},
		{environ.Lookup(EnvTracesProtocol), SourceSignalEnv},
		{environ.Lookup(EnvProtocol), SourceGeneralEnv},
	}
	for _, c := range candidates {
		if c.raw == "" {
			continue
		}
		if p, ok := ParseProtocol(c.raw); ok {
			return Setting[Protocol]{Value: p, Source: c.source}
		}
		r.warnf("unrecognized OTLP protocol %q from %s, ignoring", c.raw, c.source)
	}
	return Setting[Protocol]{Value: ProtocolHTTPProtobuf, Source: SourceDefault}
}

func resolveEndpoint(opts *Options, environ *Environ, protocol Protocol) Setting[string] {
	base := Setting[string]{Source: SourceDefault}
	switch {
	case opts.OTLP.Endpoint != "":
		base = Setting[string]{Value: opts.OTLP.Endpoint, Source: SourceConfig}
	case environ.Lookup(EnvTracesEndpoint) != "":
		base = Setting[string]{Value: environ.Lookup(EnvTracesEndpoint), Source: SourceSignalEnv}
	case environ.Lookup(EnvEndpoint) != "":
		base = Setting[string]{Value: environ.Lookup(EnvEndpoint), Source: SourceGeneralEnv}
	default:
		if protocol == ProtocolGRPC {
			base.Value = defaultGRPCEndpoint
		} else {
			base.Value = defaultHTTPEndpoint
		}
	}
	base.Value = tracesEndpoint(base.Value, base.Source, protocol)
	return base
}

// tracesEndpoint derives the final traces URL. gRPC uses the endpoint
// verbatim. HTTP protocols append the traces path to the base URL, except
// when the signal-specific override supplied it: that value is already the
// full traces endpoint and is used byte-for-byte.
func tracesEndpoint(base string, source Source, protocol Protocol) string {
	if protocol == ProtocolGRPC || source == SourceSignalEnv {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + tracesPath
}

// ParseSampler parses a sampler strategy name, case-insensitively.
func ParseSampler(s string) (Sampler, bool) {
	switch strings.ToLower(s) {
	case "alwayson":
		return SamplerAlwaysOn, true
	case "silenton":
		return SamplerSilentOn, true
	case "alwaysoff":
		return SamplerAlwaysOff, true
	case "parentbased":
		return SamplerParentBased, true
	default:
		return "", false
	}
}

func resolveSampler(opts *Options, environ *Environ, r *Resolved) Setting[Sampler] {
	candidates := []struct {
		raw    string
		source Source
	}{
		{opts.Sampler, SourceConfig},
		{environ.Lookup(EnvTracesSampler), SourceSignalEnv},
	}
	for _, c := range candidates {
		if c.raw == "" {
			continue
		}
		if s, ok := ParseSampler(c.raw); ok {
			return Setting[Sampler]{Value: s, Source: c.source}
		}
		r.warnf("unrecognized sampler %q from %s, ignoring", c.raw, c.source)
	}
	return Setting[Sampler]{Value: SamplerParentBased, Source: SourceDefault}
}

// ParsePropagator parses a propagator name, case-insensitively, accepting
// the OTEL spec spellings tracecontext and b3 as synonyms.
func ParsePropagator(s string) (Propagator, bool) {
	switch strings.ToLower(s) {
	case "w3c", "tracecontext":
		return PropagatorW3C, true
	case "jaeger":
		return PropagatorJaeger, true
	case "zipkin", "b3":
		return PropagatorZipkin, true
	default:
		return "", false
	}
}

func resolvePropagator(opts *Options, environ *Environ, r *Resolved) Setting[Propagator] {
	candidates := []struct {
		raw    string
		source Source
	}{
		{opts.Propagator, SourceConfig},
		{environ.Lookup(EnvPropagators), SourceGeneralEnv},
	}
	for _, c := range candidates {
		if c.raw == "" {
			continue
		}
		if p, ok := ParsePropagator(c.raw); ok {
			return Setting[Propagator]{Value: p, Source: c.source}
		}
		r.warnf("unrecognized propagator %q from %s, ignoring", c.raw, c.source)
	}
	return Setting[Propagator]{Value: PropagatorW3C, Source: SourceDefault}
}

func resolveLogLevel(environ *Environ, r *Resolved) Setting[zapcore.Level] {
	raw := environ.Lookup(EnvLogLevel)
	if raw != "" {
		level, err := logging.ParseLevel(raw)
		if err == nil {
			return Setting[zapcore.Level]{Value: level, Source: SourceGeneralEnv}
		}
		r.warnf("unrecognized log level %q, using default: %v", raw, err)
	}
	return Setting[zapcore.Level]{Value: zapcore.InfoLevel, Source: SourceDefault}
}
