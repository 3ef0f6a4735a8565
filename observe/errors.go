package observe

import "errors"

var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be between 0.0 and 1.0")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")

	// ErrMissingEnv is returned by ParseConfig when ${VAR} references are unset.
	ErrMissingEnv = errors.New("observe: missing required environment variables")

	// ErrNilObserver is returned by MiddlewareFromObserver.
	ErrNilObserver = errors.New("observe: observer is nil")
)

// Names accepted by Config.Validate. An empty name selects the default.
var (
	tracingExporters = []string{"otlp", "stdout", "none", ""}
	metricsExporters = []string{"otlp", "prometheus", "stdout", "none", ""}
	logLevels        = []string{"trace", "debug", "info", "warn", "error", ""}
)
