package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/blobwatch/internal/config"
	"github.com/tonimelisma/blobwatch/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagAccountURL string
	flagContainer  string
	flagVerbose    bool
	flagQuiet      bool
)

// loadedCfg holds the configuration loaded by PersistentPreRunE, available
// to all subcommands.
var loadedCfg *config.Config

// defaultConfigPath is where the config file lives unless --config is given.
const defaultConfigPath = "blobwatch.toml"

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "blobwatch",
		Short:   "Watch Azure Storage blobs for changes",
		Long:    "blobwatch polls blobs in an Azure Storage container and notifies when their content changes.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagAccountURL, "account-url", "", "storage account URL (overrides config)")
	cmd.PersistentFlags().StringVar(&flagContainer, "container", "", "container name (overrides config)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newStatCmd())

	return cmd
}

// loadConfig reads the config file (or defaults) and applies flag overrides.
// CLI flags always win over file values.
func loadConfig() error {
	path := flagConfigPath
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if flagAccountURL != "" {
		cfg.Storage.AccountURL = flagAccountURL
	}

	if flagContainer != "" {
		cfg.Storage.Container = flagContainer
	}

	loadedCfg = cfg

	return nil
}

// buildLogger creates an slog.Logger configured by the loaded config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if loadedCfg != nil {
		switch loadedCfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildStoreClient creates the container-scoped blob client from the
// effective configuration. Connection-string auth wins when both are set.
func buildStoreClient(logger *slog.Logger) (*store.Client, error) {
	s := loadedCfg.Storage

	if s.Container == "" {
		return nil, fmt.Errorf("no container configured (set storage.container or --container)")
	}

	if s.ConnectionString != "" {
		return store.NewClientFromConnectionString(s.ConnectionString, s.Container, logger)
	}

	if s.AccountURL == "" {
		return nil, fmt.Errorf("no storage account configured (set storage.account_url or --account-url)")
	}

	return store.NewClient(s.AccountURL, s.Container, logger)
}
