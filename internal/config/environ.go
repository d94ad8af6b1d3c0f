package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Environment variables recognized by the resolver. Signal-specific names
// take precedence over their general counterparts.
const (
	EnvTracesProtocol = "OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"
	EnvProtocol       = "OTEL_EXPORTER_OTLP_PROTOCOL"
	EnvTracesEndpoint = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"
	EnvEndpoint       = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvTracesSampler  = "OTEL_TRACES_SAMPLER"
	EnvPropagators    = "OTEL_PROPAGATORS"
	EnvLogLevel       = "OTEL_LOG_LEVEL"
)

// Environ is a read-only snapshot of OTEL_* environment overrides, taken
// once so that resolution itself performs no I/O.
type Environ struct {
	k *koanf.Koanf
}

// LoadEnviron snapshots the process environment.
func LoadEnviron() (*Environ, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("OTEL_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	return &Environ{k: k}, nil
}

// EnvironFromMap builds an Environ from literal variables, for tests.
// Keys use the env-var spelling (OTEL_EXPORTER_OTLP_PROTOCOL).
func EnvironFromMap(vars map[string]string) *Environ {
	k := koanf.New(".")
	for name, value := range vars {
		_ = k.Set(envKey(name), value)
	}
	return &Environ{k: k}
}

// Lookup returns the value of an override by its env-var name, empty if
// unset. Empty values are treated as unset throughout resolution.
func (e *Environ) Lookup(name string) string {
	if e == nil || name == "" {
		return ""
	}
	return e.k.String(envKey(name))
}

func envKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", ".")
}
