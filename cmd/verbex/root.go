package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/verbex/verbex/internal/logging"
	"github.com/verbex/verbex/pkg/config"
	"github.com/verbex/verbex/pkg/verbex"
)

// Version is set during build.
var Version = "0.1.0"

var (
	flagIndexName    string
	flagStorageMode  string
	flagStorageDir   string
	flagLogLevel     string
	flagLogFormat    string
)

var rootCmd = &cobra.Command{
	Use:     "verbex",
	Short:   "Multi-tenant full-text search engine",
	Version: Version,
	Long: `verbex drives a single named search index: add and retrieve
documents, attach labels and key/value tags, and run ranked search over
the result.

Examples:
  verbex index create --index articles --storage-mode on_disk --storage-dir ./data
  verbex add "doc1" "the quick brown fox" --index articles --label animal
  verbex search "fox" --index articles`,
}

// Execute runs the root command.
func Execute() {
	logging.Info("verbex starting", "version", Version)
	if err := rootCmd.Execute(); err != nil {
		logging.Error("command failed", "error", err.Error())
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagIndexName, "index", "default", "index name")
	rootCmd.PersistentFlags().StringVar(&flagStorageMode, "storage-mode", "", "in_memory or on_disk (overrides config file)")
	rootCmd.PersistentFlags().StringVar(&flagStorageDir, "storage-dir", "", "storage directory (required for on_disk)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: console, json")

	rootCmd.AddCommand(indexCmd, addCmd, getCmd, listCmd, deleteCmd, labelCmd, tagCmd, searchCmd, statsCmd)
}

// loadConfig builds the effective configuration from the config file,
// then applies any CLI flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagStorageMode != "" {
		cfg.StorageMode = config.StorageMode(flagStorageMode)
	}
	if flagStorageDir != "" {
		cfg.StorageDirectory = flagStorageDir
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Logging.Format = flagLogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output})
	logging.Debug("configuration loaded", "storage_mode", cfg.StorageMode, "storage_directory", cfg.StorageDirectory)
	return cfg, nil
}

// withIndex opens (creating if absent) the index named by --index and
// runs fn over it. The errors this helper logs for the invocation carry a
// fresh request id; log lines written inside fn do not.
func withIndex(fn func(ctx context.Context, idx *verbex.Index) error) {
	cfg, err := loadConfig()
	if err != nil {
		fatalf("config error: %v", err)
	}

	requestID := uuid.NewString()
	log := logging.GetLogger("cli").With("request_id", requestID)

	ctx := context.Background()
	idx, err := verbex.OpenIndex(ctx, flagIndexName, cfg)
	if err != nil {
		logging.Warn("index not found, creating it", "index", flagIndexName, "cause", err)
		idx, err = verbex.CreateIndex(ctx, flagIndexName, cfg)
	}
	if err != nil {
		log.LogError("open_index", err, "index", flagIndexName)
		fatalf("open index %q: %v", flagIndexName, err)
	}
	defer idx.Close(ctx)

	if err := fn(ctx, idx); err != nil {
		log.LogError("command", err, "index", flagIndexName)
		fatalf("%v", err)
	}
}

func fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logging.Error(msg)
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
