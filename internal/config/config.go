// Package config implements TOML configuration loading and validation for
// blobwatch. Durations are stored as strings in the file ("30s", "5m") and
// parsed during validation.
package config

import "github.com/tonimelisma/blobwatch/internal/watch"

// Config is the top-level structure parsed from a TOML file.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Watch   WatchConfig   `toml:"watch"`
	Logging LoggingConfig `toml:"logging"`
}

// StorageConfig identifies the Azure Storage container to watch. Either
// account_url (credential-chain auth) or connection_string (shared key)
// must be set; connection_string wins when both are present.
type StorageConfig struct {
	AccountURL       string `toml:"account_url"`
	Container        string `toml:"container"`
	ConnectionString string `toml:"connection_string"`
}

// WatchConfig holds the change-detection knobs.
type WatchConfig struct {
	DebounceDelay   string `toml:"debounce_delay"`
	WatchInterval   string `toml:"watch_interval"`
	ErrorRetryDelay string `toml:"error_retry_delay"`
	MaxHashSizeMB   int    `toml:"max_hash_size_mb"`
	Strategy        string `toml:"strategy"`
	LegacyPath      string `toml:"legacy_path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// DefaultConfig returns a Config with every field set to its default,
// mirroring watch.DefaultOptions for the detection knobs.
func DefaultConfig() *Config {
	defaults := watch.DefaultOptions()

	return &Config{
		Watch: WatchConfig{
			DebounceDelay:   defaults.DebounceDelay.String(),
			WatchInterval:   defaults.WatchInterval.String(),
			ErrorRetryDelay: defaults.ErrorRetryDelay.String(),
			MaxHashSizeMB:   defaults.MaxHashSizeMB,
			Strategy:        defaults.Strategy,
		},
		Logging: LoggingConfig{
			LogLevel: "info",
		},
	}
}
