package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("ZENNIFY_HOME", t.TempDir())
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.Store.Driver != "sqlite" || cfg.Events.Driver != "memory" {
		t.Errorf("drivers = %s/%s, want sqlite/memory", cfg.Store.Driver, cfg.Events.Driver)
	}
	if cfg.Engagement.DailyQuestCount != 3 || cfg.Engagement.MoodNoteMaxLen != 150 {
		t.Errorf("engagement = %+v", cfg.Engagement)
	}
	if cfg.Notifications.MaxPerDay != 3 {
		t.Errorf("Notifications.MaxPerDay = %d, want 3", cfg.Notifications.MaxPerDay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("ZENNIFY_HOME", home)
	t.Setenv("ZENNIFY_MONGO_URI", "")
	t.Setenv("ZENNIFY_REDIS_ADDR", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Store.Dir != home {
		t.Errorf("Store.Dir = %q, want %q", cfg.Store.Dir, home)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("ZENNIFY_HOME", t.TempDir())
	t.Setenv("ZENNIFY_MONGO_URI", "")
	t.Setenv("ZENNIFY_REDIS_ADDR", "")

	cfg := DefaultConfig()
	cfg.API.Port = 9000
	cfg.Engagement.DailyQuestCount = 5
	cfg.Engagement.Timezone = "Europe/Berlin"
	cfg.Notifications.QuietStart = "23:00"
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if got.API.Port != 9000 || got.Engagement.DailyQuestCount != 5 {
		t.Errorf("loaded = %+v", got)
	}
	if got.Engagement.Timezone != "Europe/Berlin" || got.Notifications.QuietStart != "23:00" {
		t.Errorf("loaded engagement/notifications = %+v / %+v", got.Engagement, got.Notifications)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ZENNIFY_HOME", t.TempDir())
	t.Setenv("ZENNIFY_MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("ZENNIFY_REDIS_ADDR", "localhost:6379")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Store.Driver != "mongo" || cfg.Events.Driver != "redis" {
		t.Errorf("drivers = %s/%s, want mongo/redis", cfg.Store.Driver, cfg.Events.Driver)
	}
}

func TestLoadConfig_BadFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("ZENNIFY_HOME", home)
	os.WriteFile(filepath.Join(home, "config.toml"), []byte("[api\nport = "), 0600)

	if _, err := LoadConfig(); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store.Driver = "postgres" }},
		{"mongo without uri", func(c *Config) { c.Store.Driver = "mongo" }},
		{"unknown bus", func(c *Config) { c.Events.Driver = "kafka" }},
		{"redis without addr", func(c *Config) { c.Events.Driver = "redis" }},
		{"bad timezone", func(c *Config) { c.Engagement.Timezone = "Mars/Olympus" }},
		{"zero quests", func(c *Config) { c.Engagement.DailyQuestCount = 0 }},
		{"zero custom points", func(c *Config) { c.Engagement.CustomQuestMaxPoints = 0 }},
		{"zero history", func(c *Config) { c.Engagement.MoodHistoryLimit = 0 }},
		{"negative history", func(c *Config) { c.Engagement.MoodHistoryLimit = -3 }},
		{"negative mood xp", func(c *Config) { c.Engagement.MoodXPBonus = -5 }},
		{"negative notification cap", func(c *Config) { c.Notifications.MaxPerDay = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_ZeroMoodXPAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engagement.MoodXPBonus = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("mood_xp_bonus = 0 should be valid, got %v", err)
	}
}

func TestLoadConfig_RejectsBadEngagementFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("ZENNIFY_HOME", home)
	t.Setenv("ZENNIFY_MONGO_URI", "")
	t.Setenv("ZENNIFY_REDIS_ADDR", "")
	os.WriteFile(filepath.Join(home, "config.toml"), []byte("[engagement]\ncustom_quest_max_points = 0\n"), 0600)

	if _, err := LoadConfig(); err == nil {
		t.Error("expected validation error for custom_quest_max_points = 0")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", time.Minute},
		{"90s", 90 * time.Second},
		{"garbage", time.Minute},
		{"-5s", time.Minute},
	}
	for _, tt := range tests {
		if got := parseDuration(tt.in, time.Minute); got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
