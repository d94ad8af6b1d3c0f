package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestResolve_Defaults(t *testing.T) {
	r := Resolve(nil, EnvironFromMap(nil))

	assert.Equal(t, "haproxy", r.ServiceName)
	assert.Equal(t, ProtocolHTTPProtobuf, r.Protocol.Value)
	assert.Equal(t, SourceDefault, r.Protocol.Source)
	assert.Equal(t, "http://localhost:4318/v1/traces", r.Endpoint.Value)
	assert.Equal(t, SourceDefault, r.Endpoint.Source)
	assert.Equal(t, SamplerParentBased, r.Sampler.Value)
	assert.Equal(t, PropagatorW3C, r.Propagator.Value)
	assert.Equal(t, zapcore.InfoLevel, r.LogLevel.Value)
	assert.Empty(t, r.Warnings)
}

func TestResolve_ProtocolPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		explicit   string
		environ    map[string]string
		want       Protocol
		wantSource Source
	}{
		{
			name:       "explicit config wins over both overrides",
			explicit:   "grpc",
			environ:    map[string]string{EnvTracesProtocol: "http/json", EnvProtocol: "http/protobuf"},
			want:       ProtocolGRPC,
			wantSource: SourceConfig,
		},
		{
			name:       "signal-specific override wins over general",
			environ:    map[string]string{EnvTracesProtocol: "http/json", EnvProtocol: "grpc"},
			want:       ProtocolHTTPJSON,
			wantSource: SourceSignalEnv,
		},
		{
			name:       "general override used when nothing else set",
			environ:    map[string]string{EnvProtocol: "grpc"},
			want:       ProtocolGRPC,
			wantSource: SourceGeneralEnv,
		},
		{
			name:       "empty explicit value is unset",
			explicit:   "",
			environ:    map[string]string{EnvProtocol: "grpc"},
			want:       ProtocolGRPC,
			wantSource: SourceGeneralEnv,
		},
		{
			name:       "unrecognized explicit value falls through",
			explicit:   "carrier-pigeon",
			environ:    map[string]string{EnvProtocol: "grpc"},
			want:       ProtocolGRPC,
			wantSource: SourceGeneralEnv,
		},
		{
			name:       "legacy binary token",
			explicit:   "binary",
			want:       ProtocolHTTPProtobuf,
			wantSource: SourceConfig,
		},
		{
			name:       "legacy json token, case-insensitive",
			explicit:   "JSON",
			want:       ProtocolHTTPJSON,
			wantSource: SourceConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &Options{OTLP: OTLP{Protocol: tt.explicit}}
			r := Resolve(opts, EnvironFromMap(tt.environ))
			assert.Equal(t, tt.want, r.Protocol.Value)
			assert.Equal(t, tt.wantSource, r.Protocol.Source)
		})
	}
}

func TestResolve_UnrecognizedProtocolWarns(t *testing.T) {
	opts := &Options{OTLP: OTLP{Protocol: "carrier-pigeon"}}
	r := Resolve(opts, EnvironFromMap(nil))

	assert.Equal(t, ProtocolHTTPProtobuf, r.Protocol.Value)
	assert.Equal(t, SourceDefault, r.Protocol.Source)
	require.NotEmpty(t, r.Warnings)
	assert.Contains(t, r.Warnings[0], "carrier-pigeon")
}

func TestResolve_EndpointSuffixing(t *testing.T) {
	tests := []struct {
		name     string
		opts     *Options
		environ  map[string]string
		want     string
		wantSrc  Source
	}{
		{
			name: "http protocol appends traces path and trims slashes",
			opts: &Options{OTLP: OTLP{Protocol: "http/protobuf", Endpoint: "http://collector:4318/"}},
			want: "http://collector:4318/v1/traces",
			wantSrc: SourceConfig,
		},
		{
			name: "grpc endpoint used verbatim",
			opts: &Options{OTLP: OTLP{Protocol: "grpc", Endpoint: "http://collector:4317"}},
			want: "http://collector:4317",
			wantSrc: SourceConfig,
		},
		{
			name:    "signal-specific override used byte-for-byte",
			opts:    &Options{OTLP: OTLP{Protocol: "http/protobuf"}},
			environ: map[string]string{EnvTracesEndpoint: "http://x:1/custom"},
			want:    "http://x:1/custom",
			wantSrc: SourceSignalEnv,
		},
		{
			name:    "general override gets suffix for http protocols",
			opts:    &Options{OTLP: OTLP{Protocol: "http/json"}},
			environ: map[string]string{EnvEndpoint: "http://collector:4318"},
			want:    "http://collector:4318/v1/traces",
			wantSrc: SourceGeneralEnv,
		},
		{
			name: "grpc default endpoint",
			opts: &Options{OTLP: OTLP{Protocol: "grpc"}},
			want: "http://localhost:4317",
			wantSrc: SourceDefault,
		},
		{
			name:    "empty endpoint override is unset",
			opts:    &Options{OTLP: OTLP{Protocol: "http/protobuf", Endpoint: ""}},
			environ: map[string]string{EnvTracesEndpoint: "", EnvEndpoint: "http://collector:4318"},
			want:    "http://collector:4318/v1/traces",
			wantSrc: SourceGeneralEnv,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolve(tt.opts, EnvironFromMap(tt.environ))
			assert.Equal(t, tt.want, r.Endpoint.Value)
			assert.Equal(t, tt.wantSrc, r.Endpoint.Source)
		})
	}
}

func TestResolve_Sampler(t *testing.T) {
	r := Resolve(&Options{Sampler: "silenton"}, EnvironFromMap(nil))
	assert.Equal(t, SamplerSilentOn, r.Sampler.Value)
	assert.Equal(t, SourceConfig, r.Sampler.Source)

	r = Resolve(nil, EnvironFromMap(map[string]string{EnvTracesSampler: "AlwaysOff"}))
	assert.Equal(t, SamplerAlwaysOff, r.Sampler.Value)
	assert.Equal(t, SourceSignalEnv, r.Sampler.Source)

	r = Resolve(&Options{Sampler: "coin-flip"}, EnvironFromMap(nil))
	assert.Equal(t, SamplerParentBased, r.Sampler.Value)
	assert.Equal(t, SourceDefault, r.Sampler.Source)
	assert.NotEmpty(t, r.Warnings)
}

func TestResolve_Propagator(t *testing.T) {
	r := Resolve(&Options{Propagator: "zipkin"}, EnvironFromMap(nil))
	assert.Equal(t, PropagatorZipkin, r.Propagator.Value)

	// OTEL spec spellings are accepted as synonyms.
	r = Resolve(nil, EnvironFromMap(map[string]string{EnvPropagators: "tracecontext"}))
	assert.Equal(t, PropagatorW3C, r.Propagator.Value)
	assert.Equal(t, SourceGeneralEnv, r.Propagator.Source)

	r = Resolve(nil, EnvironFromMap(map[string]string{EnvPropagators: "b3"}))
	assert.Equal(t, PropagatorZipkin, r.Propagator.Value)

	r = Resolve(&Options{Propagator: "smoke-signals"}, EnvironFromMap(nil))
	assert.Equal(t, PropagatorW3C, r.Propagator.Value)
	assert.Equal(t, SourceDefault, r.Propagator.Source)
	assert.NotEmpty(t, r.Warnings)
}

func TestResolve_LogLevel(t *testing.T) {
	r := Resolve(nil, EnvironFromMap(map[string]string{EnvLogLevel: "warning"}))
	assert.Equal(t, zapcore.WarnLevel, r.LogLevel.Value)
	assert.Equal(t, SourceGeneralEnv, r.LogLevel.Source)

	r = Resolve(nil, EnvironFromMap(map[string]string{EnvLogLevel: "trace"}))
	assert.Equal(t, zapcore.DebugLevel, r.LogLevel.Value)

	r = Resolve(nil, EnvironFromMap(map[string]string{EnvLogLevel: "shouting"}))
	assert.Equal(t, zapcore.InfoLevel, r.LogLevel.Value)
	assert.Equal(t, SourceDefault, r.LogLevel.Source)
	require.NotEmpty(t, r.Warnings)
	assert.Contains(t, r.Warnings[0], "shouting")
}

func TestResolve_ServiceName(t *testing.T) {
	r := Resolve(&Options{Name: "edge-proxy"}, EnvironFromMap(nil))
	assert.Equal(t, "edge-proxy", r.ServiceName)

	r = Resolve(&Options{}, EnvironFromMap(nil))
	assert.Equal(t, "haproxy", r.ServiceName)
}
