// Package daemon manages the Zennify daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/zennify/zennify/internal/app/engagement"
	"github.com/zennify/zennify/internal/domain"
)

// Config holds all daemon configuration.
type Config struct {
	API           APIConfig                 `toml:"api"`
	Store         StoreConfig               `toml:"store"`
	Auth          AuthConfig                `toml:"auth"`
	Events        EventsConfig              `toml:"events"`
	Engagement    EngagementConfig          `toml:"engagement"`
	Notifications domain.NotificationPolicy `toml:"notifications"`
	Telemetry     TelemetryConfig           `toml:"telemetry"`
	Logging       LoggingConfig             `toml:"logging"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// StoreConfig selects the document store.
type StoreConfig struct {
	Driver        string `toml:"driver"` // sqlite | mongo
	Dir           string `toml:"dir"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// AuthConfig controls sessions.
type AuthConfig struct {
	AccessTTL      string `toml:"access_ttl"`
	TokenCacheSize int    `toml:"token_cache_size"`
	BcryptCost     int    `toml:"bcrypt_cost"`
}

// EventsConfig selects the event bus.
type EventsConfig struct {
	Driver       string `toml:"driver"` // memory | redis
	RedisAddr    string `toml:"redis_addr"`
	RedisChannel string `toml:"redis_channel"`
}

// EngagementConfig tunes progression rules.
type EngagementConfig struct {
	engagement.Settings
	Timezone string `toml:"timezone"`
}

// TelemetryConfig controls metrics and health checks.
type TelemetryConfig struct {
	Prometheus     bool   `toml:"prometheus"`
	HealthInterval string `toml:"health_interval"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // console | json
}

// DefaultConfig returns a single-node configuration: SQLite in the data
// directory and an in-process event bus.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8642,
		},
		Store: StoreConfig{
			Driver:        "sqlite",
			Dir:           zennifyHome(),
			MongoDatabase: "zennify",
		},
		Auth: AuthConfig{
			AccessTTL:      "24h",
			TokenCacheSize: 1024,
		},
		Events: EventsConfig{
			Driver:       "memory",
			RedisChannel: "zennify-events",
		},
		Engagement: EngagementConfig{
			Settings: engagement.DefaultSettings(),
			Timezone: "UTC",
		},
		Notifications: domain.DefaultNotificationPolicy(),
		Telemetry: TelemetryConfig{
			Prometheus:     true,
			HealthInterval: "60s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig reads config from $ZENNIFY_HOME/config.toml, falling back to
// defaults, then applies environment overrides.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("stat config: %w", err)
	}

	if v := os.Getenv("ZENNIFY_MONGO_URI"); v != "" {
		cfg.Store.Driver = "mongo"
		cfg.Store.MongoURI = v
	}
	if v := os.Getenv("ZENNIFY_REDIS_ADDR"); v != "" {
		cfg.Events.Driver = "redis"
		cfg.Events.RedisAddr = v
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the daemon cannot start with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
	case "mongo":
		if strings.TrimSpace(c.Store.MongoURI) == "" {
			return fmt.Errorf("store.mongo_uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	switch c.Events.Driver {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.Events.RedisAddr) == "" {
			return fmt.Errorf("events.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown events.driver %q", c.Events.Driver)
	}
	if _, err := time.LoadLocation(c.Engagement.Timezone); err != nil {
		return fmt.Errorf("engagement.timezone: %w", err)
	}
	if c.Engagement.DailyQuestCount < 1 {
		return fmt.Errorf("engagement.daily_quest_count must be at least 1")
	}
	if c.Engagement.CustomQuestMaxPoints < 1 {
		return fmt.Errorf("engagement.custom_quest_max_points must be at least 1")
	}
	if c.Engagement.MoodHistoryLimit < 1 {
		return fmt.Errorf("engagement.mood_history_limit must be at least 1")
	}
	if c.Engagement.MoodXPBonus < 0 {
		return fmt.Errorf("engagement.mood_xp_bonus must not be negative")
	}
	if c.Notifications.MaxPerDay < 0 {
		return fmt.Errorf("notifications.max_per_day must not be negative")
	}
	return nil
}

// SaveConfig writes the config to $ZENNIFY_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ConfigPath is where LoadConfig and SaveConfig look.
func ConfigPath() string {
	return filepath.Join(zennifyHome(), "config.toml")
}

// zennifyHome returns the Zennify data directory.
func zennifyHome() string {
	if env := os.Getenv("ZENNIFY_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".zennify")
}

// Home is exported for use by other packages.
func Home() string {
	return zennifyHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
