package telemetry

import (
	"context"
	"crypto/tls"
	"strings"

	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/contrib/propagators/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"

	"github.com/haptrace/haptrace/internal/config"
)

// newExporter builds the OTLP span exporter for the resolved protocol and
// endpoint. The HTTP exporter always encodes protobuf bodies; http/json is
// accepted as a protocol token but shares the HTTP transport.
func newExporter(ctx context.Context, cfg *config.Resolved) (sdktrace.SpanExporter, error) {
	endpoint := cfg.Endpoint.Value

	if cfg.Protocol.Value == config.ProtocolGRPC {
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(stripScheme(endpoint)),
		}
		if strings.HasPrefix(endpoint, "https://") {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(&tls.Config{})))
		} else {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}

	return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
}

// samplerFor maps a named strategy to an SDK sampler. SilentOn samples like
// AlwaysOn; its header suppression happens at injection time, not here.
func samplerFor(s config.Sampler) sdktrace.Sampler {
	switch s {
	case config.SamplerAlwaysOn, config.SamplerSilentOn:
		return sdktrace.AlwaysSample()
	case config.SamplerAlwaysOff:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}

// propagatorFor maps a propagator name to its header codec. The zipkin
// format uses B3 multi headers, matching what Zipkin-family collectors
// expect.
func propagatorFor(p config.Propagator) propagation.TextMapPropagator {
	switch p {
	case config.PropagatorJaeger:
		return jaeger.Jaeger{}
	case config.PropagatorZipkin:
		return b3.New(b3.WithInjectEncoding(b3.B3MultipleHeader))
	default:
		return propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		)
	}
}

// stripScheme removes http:// or https:// from an endpoint URL. The gRPC
// exporter expects host:port, not a full URL.
func stripScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return endpoint
}
