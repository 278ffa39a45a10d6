package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// StoreDriver selects the account store backend: mongo or sqlite.
	StoreDriver string `env:"STORE_DRIVER, default=mongo"`
	// BootstrapRoles are registered in the role registry at startup.
	BootstrapRoles []string `env:"ROLES_BOOTSTRAP, default=ROLE_USER,ROLE_ADMIN"`

	Mongo  MongoConfig
	SQLite SQLiteConfig
	Redis  RedisConfig
	Cache  CacheConfig
	Events EventsConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=account_service"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH, default=accounts.db"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type CacheConfig struct {
	Enabled bool          `env:"CACHE_ENABLED, default=false"`
	TTL     time.Duration `env:"CACHE_TTL,     default=5m"`
}

type EventsConfig struct {
	Enabled bool   `env:"EVENTS_ENABLED, default=false"`
	Stream  string `env:"EVENTS_STREAM,  default=accounts.events"`
	Workers int    `env:"EVENT_WORKERS,  default=4"`
}

// RedisRequired reports whether any enabled feature needs a Redis connection.
func (c *Config) RedisRequired() bool {
	return c.Cache.Enabled || c.Events.Enabled
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMongo, StoreSQLite:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q (want %s or %s)", c.StoreDriver, StoreMongo, StoreSQLite)
	}
	if len(c.BootstrapRoles) == 0 {
		return fmt.Errorf("config: ROLES_BOOTSTRAP must name at least one role")
	}
	return nil
}
