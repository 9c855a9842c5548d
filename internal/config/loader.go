package config

import (
	"errors"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/amasuba/uraics-revenue-assurance/internal/types"
)

// ConfigLoader handles loading configuration from files.
type ConfigLoader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperConfigLoader implements ConfigLoader using Viper.
type viperConfigLoader struct {
	validator ConfigValidator
}

// NewConfigLoader creates a new ConfigLoader instance.
func NewConfigLoader(validator ConfigValidator) ConfigLoader {
	return &viperConfigLoader{
		validator: validator,
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load loads configuration from the specified file path. Keys absent from
// the file keep their DefaultConfig values.
func (l *viperConfigLoader) Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.WrapError(types.CONFIG_NOT_FOUND, "config file not found: "+path, err)
		}
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to stat config file", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to read config file", err)
	}

	// ${VAR} interpolation happens on the raw string values so every
	// section gets it, not just a hand-picked list of fields.
	for _, key := range v.AllKeys() {
		if s, ok := v.Get(key).(string); ok && strings.Contains(s, "${") {
			v.Set(key, interpolateString(s))
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to unmarshal config", err)
	}

	if err := l.validator.Validate(cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_VALIDATION_FAILED, "configuration validation failed", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration.
func (l *viperConfigLoader) LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := l.validator.Validate(cfg); err != nil {
			return nil, types.WrapError(types.CONFIG_VALIDATION_FAILED, "default configuration validation failed", err)
		}
		return cfg, nil
	}

	return l.Load(path)
}

// interpolateString replaces ${VAR_NAME} with environment variable values.
// Unset variables are left as-is.
func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if envValue, ok := os.LookupEnv(varName); ok {
			return envValue
		}
		return match
	})
}
