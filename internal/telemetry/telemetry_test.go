package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/haptrace/haptrace/internal/config"
)

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		sampler config.Sampler
		want    string
	}{
		{config.SamplerAlwaysOn, sdktrace.AlwaysSample().Description()},
		// SilentOn samples like AlwaysOn; suppression happens at injection.
		{config.SamplerSilentOn, sdktrace.AlwaysSample().Description()},
		{config.SamplerAlwaysOff, sdktrace.NeverSample().Description()},
		{config.SamplerParentBased, sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()},
		{config.Sampler(""), sdktrace.ParentBased(sdktrace.AlwaysSample()).Description()},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, samplerFor(tt.sampler).Description(), string(tt.sampler))
	}
}

func TestPropagatorFor(t *testing.T) {
	assert.Contains(t, propagatorFor(config.PropagatorW3C).Fields(), "traceparent")
	assert.Contains(t, propagatorFor(config.PropagatorW3C).Fields(), "tracestate")
	assert.Contains(t, propagatorFor(config.PropagatorZipkin).Fields(), "x-b3-traceid")
	assert.Contains(t, propagatorFor(config.PropagatorJaeger).Fields(), "uber-trace-id")
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "collector:4317", stripScheme("http://collector:4317"))
	assert.Equal(t, "collector:4317", stripScheme("https://collector:4317"))
	assert.Equal(t, "collector:4317", stripScheme("collector:4317"))
}

func TestNew_BuildsPipeline(t *testing.T) {
	for _, protocol := range []config.Protocol{config.ProtocolGRPC, config.ProtocolHTTPProtobuf, config.ProtocolHTTPJSON} {
		t.Run(string(protocol), func(t *testing.T) {
			cfg := config.Resolve(&config.Options{
				Name: "test-service",
				OTLP: config.OTLP{Protocol: string(protocol)},
				// AlwaysOff keeps shutdown from trying to export to the
				// (nonexistent) local collector.
				Sampler: "AlwaysOff",
			}, config.EnvironFromMap(nil))

			tel, err := New(t.Context(), cfg, zap.NewNop())
			require.NoError(t, err)
			require.NotNil(t, tel)
			assert.NotNil(t, tel.Tracer())
			assert.NotNil(t, tel.Propagator())

			assert.NoError(t, tel.ForceFlush(t.Context()))
			assert.NoError(t, tel.Shutdown(t.Context()))
		})
	}
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry
	assert.NoError(t, tel.ForceFlush(t.Context()))
	assert.NoError(t, tel.Shutdown(t.Context()))
}
