// Package telemetry sets up OpenTelemetry tracing for call graph builds.
//
// Configuration comes from the standard environment variables:
//
//	OTEL_ENABLED                    - enable tracing (default: false)
//	OTEL_SERVICE_NAME               - service name (default: trace-callgraph)
//	OTEL_SERVICE_VERSION            - service version (default: unknown)
//	OTEL_EXPORTER_OTLP_ENDPOINT     - OTLP collector endpoint
//	OTEL_EXPORTER_OTLP_PROTOCOL     - grpc or http/protobuf (default: grpc)
//	OTEL_EXPORTER_OTLP_HEADERS      - export headers, e.g. Authorization=Bearer xxx
//	OTEL_EXPORTER_OTLP_INSECURE     - plaintext connection (default: false)
//	OTEL_TRACES_SAMPLER             - sampler (default: always_on)
//	OTEL_TRACES_SAMPLER_ARG         - sampler argument, e.g. a ratio
//	OTEL_RESOURCE_ATTRIBUTES        - extra resource attributes
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	globalConfig *Config
	configOnce   sync.Once
)

// ShutdownFunc flushes and stops the TracerProvider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(_ context.Context) error {
	return nil
}

// Init installs the global TracerProvider from the environment. When tracing
// is disabled the default no-op provider stays in place.
func Init(ctx context.Context) (ShutdownFunc, error) {
	return InitWithConfig(ctx, loadConfig())
}

// InitWithConfig installs the global TracerProvider from cfg.
func InitWithConfig(ctx context.Context, cfg *Config) (ShutdownFunc, error) {
	if cfg == nil || !cfg.Enabled {
		return noopShutdown, nil
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}
	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	tp := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithBatcher(exporter),
		trace.WithSampler(createSampler(cfg)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Enabled returns whether OpenTelemetry tracing is enabled.
func Enabled() bool {
	return loadConfig().Enabled
}

// GetConfig returns the environment configuration.
func GetConfig() *Config {
	return loadConfig()
}

func loadConfig() *Config {
	configOnce.Do(func() {
		globalConfig = LoadFromEnv()
	})
	return globalConfig
}
