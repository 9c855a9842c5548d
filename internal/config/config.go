package config

import (
	"time"
)

// Config is the root configuration for TATIS.
type Config struct {
	Core    CoreConfig    `mapstructure:"core" yaml:"core" validate:"required"`
	Neo4j   Neo4jConfig   `mapstructure:"neo4j" yaml:"neo4j" validate:"required"`
	Router  RouterConfig  `mapstructure:"router" yaml:"router" validate:"required"`
	Tasks   TasksConfig   `mapstructure:"tasks" yaml:"tasks"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

// CoreConfig contains core application settings.
type CoreConfig struct {
	HomeDir string `mapstructure:"home_dir" yaml:"home_dir"`
	Debug   bool   `mapstructure:"debug" yaml:"debug"`
}

// Neo4jConfig contains graph store connection settings.
type Neo4jConfig struct {
	URI                   string        `mapstructure:"uri" yaml:"uri" validate:"required"`
	Username              string        `mapstructure:"username" yaml:"username"`
	Password              string        `mapstructure:"password" yaml:"password"`
	Database              string        `mapstructure:"database" yaml:"database"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size" yaml:"max_connection_pool_size" validate:"min=1,max=500"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout" yaml:"connection_timeout" validate:"min=1s"`
}

// RouterConfig holds the business constants of the query router.
type RouterConfig struct {
	// Currency prefixes every rendered amount.
	Currency string `mapstructure:"currency" yaml:"currency" validate:"required"`

	// TotalRiskCategories is the denominator of the similarity score.
	TotalRiskCategories int `mapstructure:"total_risk_categories" yaml:"total_risk_categories" validate:"min=1"`

	// HighImpactMinExposure is the per-flag exposure floor for high-impact cases.
	HighImpactMinExposure float64 `mapstructure:"high_impact_min_exposure" yaml:"high_impact_min_exposure" validate:"min=0"`

	SearchLimit     int `mapstructure:"search_limit" yaml:"search_limit" validate:"min=1,max=100"`
	RelatedLimit    int `mapstructure:"related_limit" yaml:"related_limit" validate:"min=1,max=100"`
	HighImpactLimit int `mapstructure:"high_impact_limit" yaml:"high_impact_limit" validate:"min=1,max=200"`
	MaxPathHops     int `mapstructure:"max_path_hops" yaml:"max_path_hops" validate:"min=1,max=3"`
}

// TasksConfig controls audit task lifecycle behaviour.
type TasksConfig struct {
	// StrictTransitions rejects moving a Completed task to any other status.
	StrictTransitions bool `mapstructure:"strict_transitions" yaml:"strict_transitions"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=json text"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	Insecure    bool   `mapstructure:"insecure" yaml:"insecure"`
}

// MetricsConfig contains metrics export configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// ServerConfig configures the HTTP chat API.
type ServerConfig struct {
	Address      string        `mapstructure:"address" yaml:"address" validate:"required"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// Redacted returns a copy safe for display.
func (c Config) Redacted() Config {
	out := c
	if out.Neo4j.Password != "" {
		out.Neo4j.Password = "********"
	}
	return out
}
