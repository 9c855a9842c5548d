package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/amasuba/uraics-revenue-assurance/cmd/tatis/internal"
	"github.com/amasuba/uraics-revenue-assurance/internal/config"
	"github.com/amasuba/uraics-revenue-assurance/internal/graph"
	"github.com/amasuba/uraics-revenue-assurance/internal/observability"
	"github.com/amasuba/uraics-revenue-assurance/internal/queries"
	"github.com/amasuba/uraics-revenue-assurance/internal/router"
)

// app is the per-invocation wiring: one graph client for the process,
// observability providers, and the query layers built on top.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	tracing *sdktrace.TracerProvider
	metrics *observability.Metrics
	client  graph.GraphClient
}

// newApp builds the logger and telemetry from the loaded config and
// connects to the graph.
func newApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	cfg := loadedConfig
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	logger, err := observability.NewLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, internal.WrapError(internal.ExitConfigError, "invalid logging configuration", err)
	}
	slog.SetDefault(logger)

	tp, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return nil, internal.WrapError(internal.ExitConfigError, "failed to initialise tracing", err)
	}

	metrics, err := observability.InitMetrics(cfg.Metrics)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, internal.WrapError(internal.ExitConfigError, "failed to initialise metrics", err)
	}

	neo, err := graph.NewNeo4jClient(graph.GraphClientConfig{
		URI:                   cfg.Neo4j.URI,
		Username:              cfg.Neo4j.Username,
		Password:              cfg.Neo4j.Password,
		Database:              cfg.Neo4j.Database,
		MaxConnectionPoolSize: cfg.Neo4j.MaxConnectionPoolSize,
		ConnectionTimeout:     cfg.Neo4j.ConnectionTimeout,
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	client := graph.NewTracedClient(neo, tp.Tracer(observability.TracerName), cfg.Neo4j.Database)
	if err := client.Connect(ctx); err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	logger.DebugContext(ctx, "graph connected", "uri", cfg.Neo4j.URI, "database", cfg.Neo4j.Database)
	return &app{
		cfg:     cfg,
		logger:  logger,
		tracing: tp,
		metrics: metrics,
		client:  client,
	}, nil
}

// Close releases the graph client and flushes telemetry.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.client.Close(ctx); err != nil {
		a.logger.Warn("graph close failed", "error", err)
	}
	if err := a.metrics.Shutdown(ctx); err != nil {
		a.logger.Warn("metrics shutdown failed", "error", err)
	}
	if err := observability.ShutdownTracing(ctx, a.tracing); err != nil {
		a.logger.Warn("tracing shutdown failed", "error", err)
	}
}

func (a *app) taxpayers() *queries.TaxpayerQueries {
	r := a.cfg.Router
	return queries.NewTaxpayerQueries(a.client, queries.Limits{
		Search:     r.SearchLimit,
		Related:    r.RelatedLimit,
		HighImpact: r.HighImpactLimit,
		PathHops:   r.MaxPathHops,
	})
}

func (a *app) tasks() *queries.TaskQueries {
	return queries.NewTaskQueries(a.client, queries.WithStrictTransitions(a.cfg.Tasks.StrictTransitions))
}

func (a *app) dashboard() *queries.DashboardQueries {
	return queries.NewDashboardQueries(a.client, queries.WithRiskCategories(a.cfg.Router.TotalRiskCategories))
}

// router builds the query router with router metrics recorded on the
// app's meter provider.
func (a *app) router() (*router.Router, error) {
	inst, err := observability.NewRouterInstruments(a.metrics.Meter())
	if err != nil {
		return nil, err
	}
	dispatcher := router.NewDispatcher(a.taxpayers(), router.OptionsFromConfig(a.cfg.Router), a.logger)
	return router.New(dispatcher, router.NewFormatter(a.cfg.Router.Currency),
		router.WithLogger(a.logger),
		router.WithTracer(a.tracing.Tracer(observability.TracerName)),
		router.WithInstruments(inst),
	), nil
}
