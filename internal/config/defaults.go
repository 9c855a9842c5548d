package config

import (
	"time"
)

// Router constants used when the config file does not override them.
const (
	DefaultCurrency              = "UGX"
	DefaultTotalRiskCategories   = 18
	DefaultHighImpactMinExposure = 1e9
	DefaultSearchLimit           = 10
	DefaultRelatedLimit          = 10
	DefaultHighImpactLimit       = 20
	DefaultMaxPathHops           = 3
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			HomeDir: DefaultHomeDir(),
			Debug:   false,
		},
		Neo4j: Neo4jConfig{
			URI:                   "bolt://localhost:7687",
			Username:              "neo4j",
			Password:              "",
			Database:              "neo4j",
			MaxConnectionPoolSize: 50,
			ConnectionTimeout:     30 * time.Second,
		},
		Router: RouterConfig{
			Currency:              DefaultCurrency,
			TotalRiskCategories:   DefaultTotalRiskCategories,
			HighImpactMinExposure: DefaultHighImpactMinExposure,
			SearchLimit:           DefaultSearchLimit,
			RelatedLimit:          DefaultRelatedLimit,
			HighImpactLimit:       DefaultHighImpactLimit,
			MaxPathHops:           DefaultMaxPathHops,
		},
		Tasks: TasksConfig{
			StrictTransitions: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Endpoint:    "",
			ServiceName: "tatis",
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
		Server: ServerConfig{
			Address:      "localhost:8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}
