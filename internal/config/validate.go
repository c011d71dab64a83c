package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/tonimelisma/blobwatch/internal/watch"
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateWatch(&cfg.Watch)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validateStorage(s *StorageConfig) []error {
	var errs []error

	if s.AccountURL == "" && s.ConnectionString == "" {
		errs = append(errs, errors.New("storage: one of account_url or connection_string must be set"))
	}

	if s.Container == "" {
		errs = append(errs, errors.New("storage: container must not be empty"))
	}

	return errs
}

// validateWatch parses the duration strings and defers range checking to
// watch.Options.Validate so the bounds live in one place.
func validateWatch(w *WatchConfig) []error {
	opts, errs := parseWatchOptions(w)
	if len(errs) > 0 {
		return errs
	}

	if err := opts.Validate(); err != nil {
		return []error{err}
	}

	return nil
}

// parseWatchOptions converts the raw TOML strings into watch.Options.
func parseWatchOptions(w *WatchConfig) (watch.Options, []error) {
	var errs []error

	opts := watch.Options{
		MaxHashSizeMB: w.MaxHashSizeMB,
		Strategy:      w.Strategy,
		LegacyPath:    w.LegacyPath,
	}

	parse := func(field, value string) time.Duration {
		d, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q: %w", field, value, err))
		}

		return d
	}

	opts.DebounceDelay = parse("debounce_delay", w.DebounceDelay)
	opts.WatchInterval = parse("watch_interval", w.WatchInterval)
	opts.ErrorRetryDelay = parse("error_retry_delay", w.ErrorRetryDelay)

	return opts, errs
}

// WatchOptions returns the validated watch.Options described by the config.
// Call after Validate; parse errors are returned joined regardless.
func (c *Config) WatchOptions() (watch.Options, error) {
	opts, errs := parseWatchOptions(&c.Watch)
	if len(errs) > 0 {
		return watch.Options{}, errors.Join(errs...)
	}

	if err := opts.Validate(); err != nil {
		return watch.Options{}, err
	}

	return opts, nil
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogging(l *LoggingConfig) []error {
	if !validLogLevels[l.LogLevel] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel)}
	}

	return nil
}
