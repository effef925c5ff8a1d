// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the relay.
package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreBadger   = "badger"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// StoreConfig selects and configures the persisted-room backend.
type StoreConfig struct {
	Backend    string
	BadgerPath string
	PGURL      string
	PGMaxConn  int
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Env             string
	LogLevel        string
	Port            string
	AllowedOrigins  []string
	MaxMessageSize  int64
	SendBufferSize  int
	PingInterval    time.Duration
	PongTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimit       RateLimitConfig
	Store           StoreConfig
}

// environment is the flat view of Config read by envconfig.
type environment struct {
	Env             string        `envconfig:"APP_ENV" default:"development"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"INFO"`
	Port            string        `envconfig:"SERVER_PORT" default:":8080"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	MaxMessageSize  int64         `envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
	SendBufferSize  int           `envconfig:"SEND_BUFFER_SIZE" default:"256"`
	PingInterval    time.Duration `envconfig:"PING_INTERVAL" default:"25s"`
	PongTimeout     time.Duration `envconfig:"PONG_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"20"`
	RateLimitRefill time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
	StoreBackend    string        `envconfig:"STORE_BACKEND" default:"badger"`
	BadgerPath      string        `envconfig:"BADGER_PATH" default:"data/rooms"`
	PGURL           string        `envconfig:"PG_URL"`
	PGMaxConn       int           `envconfig:"PG_MAX_CONN" default:"10"`
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() Config {
	return Config{}.sanitize()
}

// NewConfigFromEnv creates a Config from environment variables, falling back
// to defaults for unset or non-positive values.
func NewConfigFromEnv() (Config, error) {
	var env environment
	if err := envconfig.Process("", &env); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	cfg := Config{
		Env:             env.Env,
		LogLevel:        env.LogLevel,
		Port:            env.Port,
		AllowedOrigins:  env.AllowedOrigins,
		MaxMessageSize:  env.MaxMessageSize,
		SendBufferSize:  env.SendBufferSize,
		PingInterval:    env.PingInterval,
		PongTimeout:     env.PongTimeout,
		ShutdownTimeout: env.ShutdownTimeout,
		RateLimit: RateLimitConfig{
			Burst:          env.RateLimitBurst,
			RefillInterval: env.RateLimitRefill,
		},
		Store: StoreConfig{
			Backend:    strings.ToLower(strings.TrimSpace(env.StoreBackend)),
			BadgerPath: env.BadgerPath,
			PGURL:      env.PGURL,
			PGMaxConn:  env.PGMaxConn,
		},
	}
	cfg = cfg.sanitize()
	return cfg, cfg.Validate()
}

// Validate reports configuration that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreBadger, StoreMemory:
	case StorePostgres:
		if c.Store.PGURL == "" {
			return fmt.Errorf("PG_URL is required when STORE_BACKEND=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.PongTimeout <= c.PingInterval {
		return fmt.Errorf("PONG_TIMEOUT (%s) must exceed PING_INTERVAL (%s)", c.PongTimeout, c.PingInterval)
	}
	return nil
}

func (c Config) sanitize() Config {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Port == "" {
		c.Port = ":8080"
	}
	if !strings.Contains(c.Port, ":") {
		c.Port = ":" + c.Port
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)

	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = 256
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 25 * time.Second
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = time.Second
	}
	if c.Store.Backend == "" {
		c.Store.Backend = StoreBadger
	}
	if c.Store.BadgerPath == "" {
		c.Store.BadgerPath = "data/rooms"
	}
	if c.Store.PGMaxConn <= 0 {
		c.Store.PGMaxConn = 10
	}
	return c
}
