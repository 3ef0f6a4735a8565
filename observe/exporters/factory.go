// Package exporters builds the OpenTelemetry exporters used by observe.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names.
const (
	Stdout     = "stdout"
	OTLP       = "otlp"
	Prometheus = "prometheus"
	None       = "none"
)

var (
	// ErrUnknownExporter indicates an exporter name no factory handles.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")

	// ErrEndpointNotConfigured indicates OTLP was selected without an endpoint.
	ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")
)

// Settings selects and configures an exporter.
type Settings struct {
	// Name is one of Stdout, OTLP, Prometheus, None or "".
	Name string
	// Endpoint is the OTLP collector address. When empty the standard
	// OTEL_EXPORTER_OTLP_* environment variables are consulted.
	Endpoint string
	// Insecure disables TLS for OTLP.
	Insecure bool
	// Writer receives stdout exporter output. Defaults to os.Stdout.
	Writer io.Writer
}

func (s Settings) writer() io.Writer {
	if s.Writer != nil {
		return s.Writer
	}
	return os.Stdout
}

func (s Settings) endpoint(signalEnv string) string {
	if s.Endpoint != "" {
		return s.Endpoint
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		return v
	}
	return os.Getenv(signalEnv)
}

// NewSpanExporter creates a span exporter. Prometheus has no span exporter.
func NewSpanExporter(ctx context.Context, s Settings) (sdktrace.SpanExporter, error) {
	switch s.Name {
	case Stdout:
		return stdouttrace.New(stdouttrace.WithWriter(s.writer()))

	case OTLP:
		endpoint := s.endpoint("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")
		if endpoint == "" {
			return nil, fmt.Errorf("%w: set Endpoint or OTEL_EXPORTER_OTLP_ENDPOINT", ErrEndpointNotConfigured)
		}
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if s.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)

	case None, "":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, s.Name)
	}
}

// NewMetricReader creates a metric reader.
func NewMetricReader(ctx context.Context, s Settings) (sdkmetric.Reader, error) {
	switch s.Name {
	case Stdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(s.writer()))
		if err != nil {
			return nil, fmt.Errorf("stdout metric exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case OTLP:
		endpoint := s.endpoint("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT")
		if endpoint == "" {
			return nil, fmt.Errorf("%w: set Endpoint or OTEL_EXPORTER_OTLP_ENDPOINT", ErrEndpointNotConfigured)
		}
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(endpoint)}
		if s.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	case Prometheus:
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		return exp, nil

	case None, "":
		return sdkmetric.NewManualReader(), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, s.Name)
	}
}
