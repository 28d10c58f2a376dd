package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// StorageMode selects where an index keeps its data (spec.md §6).
type StorageMode string

const (
	StorageModeInMemory StorageMode = "in_memory"
	StorageModeOnDisk   StorageMode = "on_disk"
)

// LemmatizerHook normalizes a token to its lemma. Plugged in via Config
// rather than a subclassing hierarchy (spec.md §9 "Polymorphic
// analyzers").
type LemmatizerHook func(token string) string

// StopWordHook reports stop-word membership for one token.
type StopWordHook func(token string) bool

// Config is the synchronous configuration surface spec.md §6 requires the
// core to expose to its CLI/caller.
type Config struct {
	StorageMode      StorageMode `mapstructure:"storage_mode"`
	StorageDirectory string      `mapstructure:"storage_directory"`

	EnableLemmatizer       bool `mapstructure:"enable_lemmatizer"`
	EnableStopWordRemoval  bool `mapstructure:"enable_stop_word_removal"`
	MinTokenLength         int  `mapstructure:"min_token_length"`
	MaxTokenLength         int  `mapstructure:"max_token_length"`

	LemmatizerHook LemmatizerHook `mapstructure:"-"`
	StopWordHook   StopWordHook   `mapstructure:"-"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// LoggingConfig configures the ambient structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
	Output string `mapstructure:"output"` // stderr, stdout, or a file path
}

// DefaultConfig returns the configuration spec.md §6 specifies as
// defaults: in-memory storage, every analyzer stage disabled except
// tokenize/lowercase.
func DefaultConfig() *Config {
	return &Config{
		StorageMode:           StorageModeInMemory,
		EnableLemmatizer:      false,
		EnableStopWordRemoval: false,
		MinTokenLength:        0,
		MaxTokenLength:        0,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Load loads configuration from a YAML file, falling back to
// DefaultConfig() if none is found. Search order: ./verbex.yaml,
// ~/.verbex/verbex.yaml, /etc/verbex/verbex.yaml.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("verbex")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".verbex"))
	}
	v.AddConfigPath("/etc/verbex")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage_mode", string(StorageModeInMemory))
	v.SetDefault("enable_lemmatizer", false)
	v.SetDefault("enable_stop_word_removal", false)
	v.SetDefault("min_token_length", 0)
	v.SetDefault("max_token_length", 0)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
}

// Validate checks the configuration surface spec.md §6 enumerates.
func (c *Config) Validate() error {
	switch c.StorageMode {
	case StorageModeInMemory:
	case StorageModeOnDisk:
		if c.StorageDirectory == "" {
			return fmt.Errorf("storage_directory is required when storage_mode is on_disk")
		}
	default:
		return fmt.Errorf("storage_mode must be 'in_memory' or 'on_disk'")
	}

	if c.MinTokenLength < 0 {
		return fmt.Errorf("min_token_length must be >= 0")
	}
	if c.MaxTokenLength < 0 {
		return fmt.Errorf("max_token_length must be >= 0")
	}
	if c.MaxTokenLength > 0 && c.MinTokenLength > c.MaxTokenLength {
		return fmt.Errorf("min_token_length must be <= max_token_length")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: console, json")
	}

	return nil
}

// DatabasePath returns the path of the single database file spec.md §6
// mandates for on-disk storage: "index.db" inside StorageDirectory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.StorageDirectory, "index.db")
}

// EnsureStorageDirectory creates StorageDirectory if it doesn't exist.
func (c *Config) EnsureStorageDirectory() error {
	if c.StorageMode != StorageModeOnDisk {
		return nil
	}
	if err := os.MkdirAll(c.StorageDirectory, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	return nil
}
