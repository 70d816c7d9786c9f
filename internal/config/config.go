// Package config holds the root configuration for the correlation engine and
// its CLI, loaded through viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

// LoggerConfig holds all logger settings.
type LoggerConfig struct {
	Level       string `mapstructure:"level" json:"level" yaml:"level"`
	Format      string `mapstructure:"format" json:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" json:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" json:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" json:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" json:"compress" yaml:"compress"`
}

// PostgresConfig holds settings for optional snapshot persistence.
type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

// EngineConfig holds graph engine and ingestion settings.
type EngineConfig struct {
	// RemovalPolicy is "cascade" (default) or "strict".
	RemovalPolicy string `mapstructure:"removal_policy"`
	// IngestWorkers sizes the batch ingestion worker pool.
	IngestWorkers int `mapstructure:"ingest_workers"`
	// QueryTimeout bounds a single subgraph or search traversal.
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	// MaxHops caps subgraph expansion depth requested by callers.
	MaxHops int `mapstructure:"max_hops"`
}

// SetDefaults registers defaults so the engine runs with a minimal config.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "threatgraph")
	v.SetDefault("engine.removal_policy", "cascade")
	v.SetDefault("engine.ingest_workers", 1)
	v.SetDefault("engine.query_timeout", 10*time.Second)
	v.SetDefault("engine.max_hops", 6)
}

// Validate checks cross-field constraints after unmarshaling.
func (c *Config) Validate() error {
	switch c.Engine.RemovalPolicy {
	case "", "cascade", "strict":
	default:
		return fmt.Errorf("engine.removal_policy must be \"cascade\" or \"strict\", got %q", c.Engine.RemovalPolicy)
	}
	if c.Engine.IngestWorkers < 0 {
		return fmt.Errorf("engine.ingest_workers cannot be negative")
	}
	if c.Engine.MaxHops < 0 {
		return fmt.Errorf("engine.max_hops cannot be negative")
	}
	return nil
}

// Load unmarshals the configuration from the given viper instance.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
