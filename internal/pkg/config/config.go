package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Explorer  ExplorerConfig  `mapstructure:"explorer"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
	// MaxConnIdle closes pooled connections idle for longer, in seconds.
	MaxConnIdle int `mapstructure:"max_conn_idle"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// IdleTimeout returns MaxConnIdle as a duration.
func (d DatabaseConfig) IdleTimeout() time.Duration {
	return time.Duration(d.MaxConnIdle) * time.Second
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	// Schedule is how often the refresher announces a listings refresh, in minutes.
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// ExplorerConfig tunes explorer sessions.
type ExplorerConfig struct {
	FeedLimit    int     `mapstructure:"feed_limit"`
	PriceCeiling int64   `mapstructure:"price_ceiling"`
	MinRadius    float64 `mapstructure:"min_radius"`
	MaxRadius    float64 `mapstructure:"max_radius"`
	// SessionTTL is the idle time after which a session is closed, in seconds.
	SessionTTL  int `mapstructure:"session_ttl"`
	MaxSessions int `mapstructure:"max_sessions"`
	// FeedURL points at a remote record feed. Empty reads from the database.
	FeedURL string `mapstructure:"feed_url"`
}

// Load reads configuration from .env, an optional config file and environment
// variables, in increasing precedence.
func Load(service string) (*Config, error) {
	// .env is a convenience for local runs
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "mapexplorer")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "mapexplorer")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("database.max_conn_idle", 300)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "listings-refresh")
	v.SetDefault("temporal.interval_minutes", 15)
	v.SetDefault("explorer.feed_limit", 50)
	v.SetDefault("explorer.price_ceiling", 10_000_000)
	v.SetDefault("explorer.min_radius", 500)
	v.SetDefault("explorer.max_radius", 10_000)
	v.SetDefault("explorer.session_ttl", 1800)
	v.SetDefault("explorer.max_sessions", 1000)
	v.SetDefault("explorer.feed_url", "")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: MAPEXPLORER_DATABASE_HOST → database.host
	v.SetEnvPrefix("MAPEXPLORER")
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
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "database.max_conns must be positive")
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
	if c.Explorer.FeedLimit <= 0 {
		errs = append(errs, "explorer.feed_limit must be positive")
	}
	if c.Explorer.PriceCeiling <= 0 {
		errs = append(errs, "explorer.price_ceiling must be positive")
	}
	if c.Explorer.MinRadius <= 0 || c.Explorer.MinRadius > c.Explorer.MaxRadius {
		errs = append(errs, fmt.Sprintf("explorer radius bounds must satisfy 0 < min <= max, got %g..%g",
			c.Explorer.MinRadius, c.Explorer.MaxRadius))
	}
	if c.Explorer.SessionTTL <= 0 {
		errs = append(errs, "explorer.session_ttl must be positive")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
