package telemetry

import (
	"os"
	"strconv"
	"strings"
)

// DefaultServiceName is reported when OTEL_SERVICE_NAME is unset.
const DefaultServiceName = "trace-callgraph"

// Config holds OpenTelemetry configuration loaded from the standard OTEL_*
// environment variables.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint of the OTLP collector, with or without scheme.
	Endpoint string
	// Protocol is grpc (default) or http/protobuf.
	Protocol string
	// Headers are sent with every export, e.g. Authorization.
	Headers  map[string]string
	Insecure bool

	// Sampler is one of always_on, always_off, traceidratio and their
	// parentbased_ variants. Empty means always_on.
	Sampler    string
	SamplerArg string

	ResourceAttrs map[string]string
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		Enabled:        envBool("OTEL_ENABLED"),
		ServiceName:    getEnvOrDefault("OTEL_SERVICE_NAME", DefaultServiceName),
		ServiceVersion: getEnvOrDefault("OTEL_SERVICE_VERSION", "unknown"),
		Endpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Protocol:       getEnvOrDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
		Headers:        parseKeyValuePairs(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Insecure:       envBool("OTEL_EXPORTER_OTLP_INSECURE"),
		Sampler:        os.Getenv("OTEL_TRACES_SAMPLER"),
		SamplerArg:     os.Getenv("OTEL_TRACES_SAMPLER_ARG"),
		ResourceAttrs:  parseKeyValuePairs(os.Getenv("OTEL_RESOURCE_ATTRIBUTES")),
	}
}

func envBool(key string) bool {
	return strings.EqualFold(os.Getenv(key), "true")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseKeyValuePairs parses "k1=v1,k2=v2". Values may contain '='.
func parseKeyValuePairs(s string) map[string]string {
	result := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		result[key] = strings.TrimSpace(value)
	}
	return result
}

// parseRatio parses a sampling ratio clamped to [0, 1]. Invalid input means
// full sampling.
func parseRatio(s string) float64 {
	ratio, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 1.0
	}
	return min(max(ratio, 0), 1)
}
