// Package app wires configuration, storage and Telegram handlers into a runnable bot.
package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/bookbot/core/config"
	coredatabase "github.com/m3rciful/bookbot/core/database"
)

// Catalog backends.
const (
	CatalogMemory = "memory"
	CatalogJSON   = "json"
	CatalogSQL    = "sql"
)

// Session backends.
const (
	SessionsMemory = "memory"
	SessionsRedis  = "redis"
)

// CatalogConfig selects where books are stored.
type CatalogConfig struct {
	Backend string `yaml:"backend" envconfig:"CATALOG_BACKEND"`
	// Path is the JSON catalog file.
	Path string `yaml:"path" envconfig:"CATALOG_PATH"`
	// Watch reloads the JSON file on external edits.
	Watch         bool `yaml:"watch" envconfig:"CATALOG_WATCH"`
	RecommendSize int  `yaml:"recommend_size" envconfig:"CATALOG_RECOMMEND_SIZE"`
}

// FilesConfig points at the directory with book files.
type FilesConfig struct {
	Dir string `yaml:"dir" envconfig:"FILES_DIR"`
}

// RedisConfig holds connection settings for the Redis session store.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Prefix   string `yaml:"prefix" envconfig:"REDIS_PREFIX"`
}

// SessionsConfig controls where dialog sessions live and whether they expire.
type SessionsConfig struct {
	Backend string `yaml:"backend" envconfig:"SESSIONS_BACKEND"`
	// TTL of zero keeps abandoned dialogs forever.
	TTL           time.Duration `yaml:"ttl" envconfig:"SESSIONS_TTL"`
	SweepSchedule string        `yaml:"sweep_schedule" envconfig:"SESSIONS_SWEEP_SCHEDULE"`
	Redis         RedisConfig   `yaml:"redis"`
}

// Config is the full bot configuration: the shared core sections plus bookbot's own.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Catalog  CatalogConfig       `yaml:"catalog"`
	Files    FilesConfig         `yaml:"files"`
	Sessions SessionsConfig      `yaml:"sessions"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads YAML at path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the bookbot sections and fills defaults.
func (c *Config) Normalize() error {
	c.Catalog.Backend = strings.ToLower(strings.TrimSpace(c.Catalog.Backend))
	switch c.Catalog.Backend {
	case "":
		c.Catalog.Backend = CatalogSQL
	case CatalogMemory, CatalogJSON, CatalogSQL:
	default:
		return fmt.Errorf("invalid catalog.backend %q; allowed: memory, json, sql", c.Catalog.Backend)
	}
	if c.Catalog.Backend == CatalogJSON && strings.TrimSpace(c.Catalog.Path) == "" {
		c.Catalog.Path = "books.json"
	}
	if c.Catalog.RecommendSize <= 0 {
		c.Catalog.RecommendSize = 3
	}
	if c.Catalog.Backend == CatalogSQL {
		if err := c.Database.Normalize(); err != nil {
			return err
		}
	}

	if strings.TrimSpace(c.Files.Dir) == "" {
		c.Files.Dir = "books"
	}

	c.Sessions.Backend = strings.ToLower(strings.TrimSpace(c.Sessions.Backend))
	switch c.Sessions.Backend {
	case "":
		c.Sessions.Backend = SessionsMemory
	case SessionsMemory:
	case SessionsRedis:
		if strings.TrimSpace(c.Sessions.Redis.Addr) == "" {
			return fmt.Errorf("sessions.redis.addr is required when sessions.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid sessions.backend %q; allowed: memory, redis", c.Sessions.Backend)
	}
	if c.Sessions.TTL < 0 {
		return fmt.Errorf("sessions.ttl must be >= 0")
	}
	if c.Sessions.TTL > 0 && c.Sessions.SweepSchedule == "" {
		c.Sessions.SweepSchedule = "@every 10m"
	}
	return nil
}
