package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/amasuba/uraics-revenue-assurance/internal/config"
	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

// Metric names recorded by TATIS.
const (
	MetricRouterRequests = "tatis.router.requests"
	MetricRouterDuration = "tatis.router.duration"
)

// Metrics bundles the meter provider with the HTTP handler that exposes it.
type Metrics struct {
	Provider metric.MeterProvider
	Handler  http.Handler

	shutdown func(context.Context) error
}

// Meter returns the TATIS meter.
func (m *Metrics) Meter() metric.Meter {
	return m.Provider.Meter(TracerName)
}

// Shutdown flushes and stops the provider. Safe on a disabled Metrics.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.shutdown == nil {
		return nil
	}
	return m.shutdown(ctx)
}

// InitMetrics builds the meter provider. Disabled metrics use the noop
// provider and a handler answering 404. Enabled metrics register an otel
// Prometheus exporter on a private registry served by promhttp.
func InitMetrics(cfg config.MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{
			Provider: noop.NewMeterProvider(),
			Handler:  http.NotFoundHandler(),
		}, nil
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, types.WrapError(ErrMetricsRegistration, "failed to create prometheus exporter", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return &Metrics{
		Provider: provider,
		Handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		shutdown: provider.Shutdown,
	}, nil
}

// RouterInstruments are the instruments the query router records into.
type RouterInstruments struct {
	Requests metric.Int64Counter
	Duration metric.Float64Histogram
}

// NewRouterInstruments creates the router counter and histogram on meter.
func NewRouterInstruments(meter metric.Meter) (*RouterInstruments, error) {
	requests, err := meter.Int64Counter(MetricRouterRequests,
		metric.WithDescription("Chat inputs handled, by intent and envelope kind"),
	)
	if err != nil {
		return nil, types.WrapError(ErrMetricsRegistration, "failed to create "+MetricRouterRequests, err)
	}

	duration, err := meter.Float64Histogram(MetricRouterDuration,
		metric.WithDescription("Time to classify, dispatch and format one input"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, types.WrapError(ErrMetricsRegistration, "failed to create "+MetricRouterDuration, err)
	}

	return &RouterInstruments{Requests: requests, Duration: duration}, nil
}
