package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Fanout    FanoutConfig    `mapstructure:"fanout"`
	Geofence  GeofenceConfig  `mapstructure:"geofence"`
	Retention RetentionConfig `mapstructure:"retention"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	// MaxClockSkewSeconds is how far in the future captured_at may lie.
	MaxClockSkewSeconds int `mapstructure:"max_clock_skew_seconds"`
	// RetryAttempts bounds durable-write retries on transient errors.
	RetryAttempts int `mapstructure:"retry_attempts"`
	// RetryBackoffMillis is the base retry delay.
	RetryBackoffMillis int `mapstructure:"retry_backoff_ms"`
	// Workers is the ingestor consumer pool size.
	Workers int `mapstructure:"workers"`
}

// FanoutConfig tunes per-subscriber buffering.
type FanoutConfig struct {
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
}

// GeofenceConfig tunes the spatial index.
type GeofenceConfig struct {
	GridCellDegrees float64 `mapstructure:"grid_cell_degrees"`
}

// RetentionConfig tunes age-based pruning of the location store.
type RetentionConfig struct {
	Enabled              bool `mapstructure:"enabled"`
	MaxAgeHours          int  `mapstructure:"max_age_hours"`
	PruneIntervalMinutes int  `mapstructure:"prune_interval_minutes"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8099)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "livetrack")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "live_tracking")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("ingest.max_clock_skew_seconds", 30)
	v.SetDefault("ingest.retry_attempts", 3)
	v.SetDefault("ingest.retry_backoff_ms", 100)
	v.SetDefault("ingest.workers", 8)
	v.SetDefault("fanout.subscriber_buffer", 64)
	v.SetDefault("geofence.grid_cell_degrees", 0.5)
	v.SetDefault("retention.enabled", false)
	v.SetDefault("retention.max_age_hours", 720)
	v.SetDefault("retention.prune_interval_minutes", 15)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: LIVETRACK_DATABASE_HOST → database.host
	v.SetEnvPrefix("LIVETRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Ingest.MaxClockSkewSeconds <= 0 {
		errs = append(errs, "ingest.max_clock_skew_seconds must be positive")
	}
	if c.Ingest.RetryAttempts < 0 {
		errs = append(errs, "ingest.retry_attempts must not be negative")
	}
	if c.Ingest.Workers <= 0 {
		errs = append(errs, "ingest.workers must be positive")
	}
	if c.Fanout.SubscriberBuffer <= 0 {
		errs = append(errs, "fanout.subscriber_buffer must be positive")
	}
	if c.Geofence.GridCellDegrees <= 0 {
		errs = append(errs, "geofence.grid_cell_degrees must be positive")
	}
	if c.Retention.Enabled && c.Retention.MaxAgeHours <= 0 {
		errs = append(errs, "retention.max_age_hours must be positive when retention is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
