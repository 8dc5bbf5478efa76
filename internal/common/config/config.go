// internal/common/config/config.go
package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Session  SessionConfig  `mapstructure:"session"`
	SQL      SQLConfig      `mapstructure:"sql"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// CatalogConfig points at the dimension/metric catalog document.
type CatalogConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"` // hot-reload on file change
}

// ResolverConfig holds the knobs of extraction and ambiguity resolution.
type ResolverConfig struct {
	FuzzyThreshold  float64            `mapstructure:"fuzzy_threshold"`
	AmbiguityMargin float64            `mapstructure:"ambiguity_margin"`
	DefaultRange    DefaultRangeConfig `mapstructure:"default_range"`
}

// DefaultRangeConfig controls whether a query without a time expression
// falls back to a trailing window instead of requiring clarification.
type DefaultRangeConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Days    int  `mapstructure:"days"`
}

// SessionConfig selects and tunes the pending-query session store.
type SessionConfig struct {
	Store      string      `mapstructure:"store"` // "memory" or "redis"
	TTLMinutes int         `mapstructure:"ttl_minutes"`
	Redis      RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SQLConfig names the fact table the rendered SQL runs against.
type SQLConfig struct {
	Table      string `mapstructure:"table"`
	DateColumn string `mapstructure:"date_column"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TTL returns the session time-to-live as a duration.
func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
