package observability

import "github.com/amasuba/uraics-revenue-assurance/internal/types"

// Observability error codes.
const (
	// ErrExporterConnection indicates failure to build or connect an exporter.
	ErrExporterConnection types.ErrorCode = "OBSERVABILITY_EXPORTER_CONNECTION"

	// ErrMetricsRegistration indicates failure to register a metric instrument.
	ErrMetricsRegistration types.ErrorCode = "OBSERVABILITY_METRICS_REGISTRATION"

	// ErrShutdownTimeout indicates a provider did not flush before the deadline.
	ErrShutdownTimeout types.ErrorCode = "OBSERVABILITY_SHUTDOWN_TIMEOUT"

	// ErrInvalidLogConfig indicates an unknown log level or format.
	ErrInvalidLogConfig types.ErrorCode = "OBSERVABILITY_INVALID_LOG_CONFIG"
)
