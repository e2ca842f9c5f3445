package config

import (
	"errors"
	"time"
)

var errConfigPathRequired = errors.New("config: pairs.config_path is required")

// Config represents the complete application configuration
type Config struct {
	Redis      RedisConfig      `yaml:"redis"`
	Pairs      PairsConfig      `yaml:"pairs"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
	Security   SecurityConfig   `yaml:"security"`
}

// ============================================================================
// CORE CONFIGURATION
// ============================================================================

// RedisConfig represents Redis connection configuration
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Timeout  string `yaml:"timeout"`
}

// PairsConfig points at the pair-registry file and the per-store retention
// cap, ahead of the registry being loaded.
type PairsConfig struct {
	ConfigPath string `yaml:"config_path"`
	MaxCandles int    `yaml:"max_candles"`
}

// IngestConfig controls the Pangea connection and reconnect backoff shared
// by every pair's Ingestor.
type IngestConfig struct {
	PangeaURL        string  `yaml:"pangea_url"`
	InitialBackoff   string  `yaml:"initial_backoff"`
	MaxBackoff       string  `yaml:"max_backoff"`
	BackoffFactor    float64 `yaml:"backoff_factor"`
	MaxRetries       int     `yaml:"max_retries"`
	HealthCheckEvery string  `yaml:"health_check_interval"`
}

// ============================================================================
// SYSTEM CONFIGURATION
// ============================================================================

// MonitoringConfig represents monitoring configuration
type MonitoringConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsAddr    string `yaml:"metrics_addr"`
}

// HTTPConfig represents the UDF query façade's HTTP server configuration
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig represents structured-logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	RateLimiting RateLimitConfig `yaml:"rate_limiting"`
	CORS         CORSConfig      `yaml:"cors"`
}

// RateLimitConfig represents rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second"`
	Burst             int  `yaml:"burst"`
}

// CORSConfig represents CORS configuration
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
}

// ============================================================================
// HELPER METHODS
// ============================================================================

// Duration parses an ingest backoff/timeout string, defaulting to d if field
// is empty or malformed.
func Duration(field string, d time.Duration) time.Duration {
	if field == "" {
		return d
	}
	parsed, err := time.ParseDuration(field)
	if err != nil {
		return d
	}
	return parsed
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Pairs.ConfigPath == "" {
		return errConfigPathRequired
	}
	if c.Pairs.MaxCandles <= 0 {
		c.Pairs.MaxCandles = 1000
	}
	return nil
}
