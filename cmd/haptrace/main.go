// Command haptrace drives one simulated request through the tracing module
// and flushes the resulting spans to the configured collector. Useful for
// verifying exporter configuration against a live OTLP endpoint without a
// running proxy.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/haptrace/haptrace"
	"github.com/haptrace/haptrace/internal/config"
	"github.com/haptrace/haptrace/internal/host"
)

func main() {
	var (
		name       = flag.String("name", "", "service name (default haproxy)")
		endpoint   = flag.String("endpoint", "", "OTLP endpoint, overrides OTEL_EXPORTER_OTLP_* env")
		protocol   = flag.String("protocol", "", "grpc, http/protobuf or http/json")
		sampler    = flag.String("sampler", "", "AlwaysOn, SilentOn, AlwaysOff or ParentBased")
		propagator = flag.String("propagator", "", "w3c, jaeger or zipkin")
		status     = flag.Int("status", 200, "simulated upstream status code")
	)
	flag.Parse()

	if err := run(*name, *endpoint, *protocol, *sampler, *propagator, int64(*status)); err != nil {
		fmt.Fprintln(os.Stderr, "haptrace:", err)
		os.Exit(1)
	}
}

func run(name, endpoint, protocol, sampler, propagator string, status int64) error {
	opts := &config.Options{
		Name:       name,
		Sampler:    sampler,
		Propagator: propagator,
		OTLP: config.OTLP{
			Endpoint: endpoint,
			Protocol: protocol,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	core := host.NewFakeCore()
	mod, err := haptrace.Register(ctx, core, opts)
	if err != nil {
		return err
	}

	txn := host.NewFakeTransaction()
	txn.Samples["method"] = "GET"
	txn.Samples["pathq"] = "/healthz?probe=1"
	txn.Samples["src"] = "203.0.113.7"
	txn.Samples["fe_name"] = "fe_main"
	txn.Samples["be_name"] = "be_app"
	txn.Samples["srv_name"] = "app1"
	txn.Samples["txn_sess_term_state"] = "--"
	txn.IntSamples["txn_status"] = status
	txn.ReqHeaders = [][2]string{{"Host", "demo.example"}}

	if err := core.Actions[haptrace.ActionStartServerSpan](txn, nil); err != nil {
		return fmt.Errorf("start_server_span: %w", err)
	}

	filter, err := core.Filters[haptrace.FilterName]("")
	if err != nil {
		return fmt.Errorf("creating filter: %w", err)
	}
	if err := filter.HTTPHeaders(txn, host.NewFakeMessage(false)); err != nil {
		return fmt.Errorf("request headers: %w", err)
	}
	resp := host.NewFakeMessage(true)
	resp.Code = status
	resp.Reason = "simulated"
	if err := filter.HTTPHeaders(txn, resp); err != nil {
		return fmt.Errorf("response headers: %w", err)
	}
	if err := filter.EndAnalyze(txn, true); err != nil {
		return fmt.Errorf("end analyze: %w", err)
	}

	if err := mod.Flush(ctx); err != nil {
		return fmt.Errorf("flushing spans: %w", err)
	}
	return mod.Shutdown(ctx)
}
