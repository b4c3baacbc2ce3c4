package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/m96-chan/slackscout/internal/consts"
)

//go:embed config.toml
var defaultConfig []byte

// Config holds the application configuration.
type Config struct {
	MessagesLimit int `toml:"messages_limit"`

	Timestamps Timestamps `toml:"timestamps"`
	Poll       Poll       `toml:"poll"`
	Reactions  Reactions  `toml:"reactions"`
	API        API        `toml:"api"`
	Cache      Cache      `toml:"cache"`
	Debug      Debug      `toml:"debug"`
}

// Timestamps controls message timestamp display.
type Timestamps struct {
	Format string `toml:"format"`
}

// Poll controls the realtime polling loop.
type Poll struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

// Reactions controls progressive reaction loading.
type Reactions struct {
	FirstBatch int `toml:"first_batch"`
	ChunkSize  int `toml:"chunk_size"`
}

// API controls outbound Slack API pacing.
type API struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Cache controls the local SQLite cache.
type Cache struct {
	Path string `toml:"path"`
}

// Debug controls the optional debug/metrics HTTP listener.
// An empty listen address disables it.
type Debug struct {
	Listen string `toml:"listen"`
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, consts.Name, "config.toml")
}

// Load reads the config from the given path. If the file does not exist,
// it writes the default config and loads that. Config loading is two-phase:
// embedded defaults are applied first, then the user file overlays on top.
func Load(path string) (*Config, error) {
	// Phase 1: unmarshal embedded defaults.
	var cfg Config
	if err := toml.Unmarshal(defaultConfig, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}

	// Write default config if file does not exist.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, defaultConfig, 0o600); err != nil {
			return nil, err
		}
	}

	// Phase 2: overlay user file on top of defaults.
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// applyDefaults resolves computed defaults that can't be expressed in TOML.
func applyDefaults(cfg *Config) {
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(consts.CacheDir, consts.Name+".db")
	}
	if cfg.Timestamps.Format == "" {
		cfg.Timestamps.Format = "2006-01-02 15:04"
	}
}

// validate checks that config values are within acceptable ranges.
func validate(cfg *Config) error {
	if cfg.MessagesLimit < 1 || cfg.MessagesLimit > 100 {
		return fmt.Errorf("messages_limit must be between 1 and 100, got %d", cfg.MessagesLimit)
	}
	if cfg.Poll.IntervalSeconds < 1 {
		return fmt.Errorf("poll.interval_seconds must be >= 1, got %d", cfg.Poll.IntervalSeconds)
	}
	if cfg.Reactions.FirstBatch < 1 {
		return fmt.Errorf("reactions.first_batch must be >= 1, got %d", cfg.Reactions.FirstBatch)
	}
	if cfg.Reactions.ChunkSize < 1 {
		return fmt.Errorf("reactions.chunk_size must be >= 1, got %d", cfg.Reactions.ChunkSize)
	}
	if cfg.API.RequestsPerSecond <= 0 {
		return fmt.Errorf("api.requests_per_second must be > 0, got %v", cfg.API.RequestsPerSecond)
	}
	return nil
}
