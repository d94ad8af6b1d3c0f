// Package config resolves the module's exporter configuration from layered
// sources: explicit module options, signal-specific environment overrides,
// general environment overrides, and hard defaults, in that order of
// precedence. Resolution is pure and never fails; values that fail to parse
// fall through to the next source.
package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Options is the module configuration table supplied by the embedding
// configuration. All fields are optional; empty means unset.
type Options struct {
	// Name is the reported service name.
	Name string `koanf:"name"`
	// Sampler is one of AlwaysOn, SilentOn, AlwaysOff, ParentBased.
	Sampler string `koanf:"sampler"`
	// Propagator is one of w3c, jaeger, zipkin.
	Propagator string `koanf:"propagator"`
	OTLP       OTLP   `koanf:"otlp"`
}

// OTLP holds exporter transport options.
type OTLP struct {
	Endpoint string `koanf:"endpoint"`
	// Protocol is grpc, http/protobuf or http/json; the legacy values
	// binary and json are still accepted.
	Protocol string `koanf:"protocol"`
}

// ParseOptions loads Options from a YAML document, the Go rendition of the
// host's module-config table.
func ParseOptions(data []byte) (*Options, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse module options: %w", err)
	}
	var opts Options
	if err := k.Unmarshal("", &opts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal module options: %w", err)
	}
	return &opts, nil
}
