package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Snapshot sources
const (
	SourceFiles    = "files"
	SourcePostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string `mapstructure:"listen_addr"`
	Debug      bool   `mapstructure:"debug"`
	LogLevel   string `mapstructure:"log_level"`

	// Directories
	DataDirectory     string `mapstructure:"data_dir"`
	SettingsDirectory string `mapstructure:"settings_dir"`

	// Snapshot source
	Source        string `mapstructure:"source"`
	DatabaseURL   string `mapstructure:"database_url"`
	MigrationsDir string `mapstructure:"migrations_dir"`

	// Insight generation
	WindowDays         int    `mapstructure:"window_days"`
	StatePruneSchedule string `mapstructure:"state_prune_schedule"`
}

// StateFile is where per-user insight state is kept
func (c *Config) StateFile() string {
	return filepath.Join(c.SettingsDirectory, "insight_state.json")
}

// Load reads configuration from defaults, an optional TOML file (path from
// FININSIGHT_CONFIG, otherwise ./config.toml), a .env file and FININSIGHT_*
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	v := viper.New()
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("data_dir", filepath.Join(wd, "data"))
	v.SetDefault("settings_dir", "")
	v.SetDefault("source", SourceFiles)
	v.SetDefault("database_url", "")
	v.SetDefault("migrations_dir", filepath.Join(wd, "migrations"))
	v.SetDefault("window_days", 90)
	v.SetDefault("state_prune_schedule", "@hourly")

	v.SetConfigType("toml")
	if cfgPath := os.Getenv("FININSIGHT_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(wd)
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("FININSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// a missing file is fine; defaults and env still apply
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.SettingsDirectory == "" {
		cfg.SettingsDirectory = filepath.Join(cfg.DataDirectory, "settings")
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.ensureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option combinations
func (c *Config) Validate() error {
	switch c.Source {
	case SourceFiles:
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("source %q requires database_url", c.Source)
		}
	default:
		return fmt.Errorf("unknown source %q (want %q or %q)", c.Source, SourceFiles, SourcePostgres)
	}
	if c.WindowDays <= 0 {
		return fmt.Errorf("window_days must be positive, got %d", c.WindowDays)
	}
	return nil
}

// ensureDirectories creates required directories if they don't exist
func (c *Config) ensureDirectories() error {
	for _, dir := range []string{c.DataDirectory, c.SettingsDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
