package watch

import (
	"errors"
	"fmt"
	"time"
)

// Strategy selection values for Options.Strategy.
const (
	StrategyAuto = "auto" // content hash, falling back to tag above MaxHashSizeMB
	StrategyTag  = "tag"
	StrategyHash = "hash"
)

// Validation bounds.
const (
	maxDebounceDelay   = time.Hour
	minWatchInterval   = time.Second
	maxWatchInterval   = 24 * time.Hour
	minErrorRetryDelay = time.Second
	maxErrorRetryDelay = 2 * time.Hour
	minHashSizeMB      = 1
	maxHashSizeMB      = 1024

	bytesPerMB = 1024 * 1024
)

// Options configures a Provider. Zero values are not usable; start from
// DefaultOptions and override.
type Options struct {
	// DebounceDelay is the quiet window between first detection and
	// notification, coalescing rapid successive writes. 0 disables the
	// window: a detected change fires on the next tick with no extra wait.
	DebounceDelay time.Duration

	// WatchInterval is the pause between successful checks.
	WatchInterval time.Duration

	// ErrorRetryDelay replaces WatchInterval after a transient poll error.
	ErrorRetryDelay time.Duration

	// MaxHashSizeMB bounds content hashing: blobs larger than this are
	// checked by version tag only.
	MaxHashSizeMB int

	// Strategy picks the detection strategy: auto, tag, or hash.
	Strategy string

	// LegacyPath is the blob polled by the shared token in legacy mode.
	// Empty means the first watched path is used.
	LegacyPath string
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		DebounceDelay:   30 * time.Second,
		WatchInterval:   30 * time.Second,
		ErrorRetryDelay: time.Minute,
		MaxHashSizeMB:   4,
		Strategy:        StrategyAuto,
	}
}

// Validate checks every option and returns all violations joined, so a
// misconfiguration is reported completely in one pass.
func (o Options) Validate() error {
	var errs []error

	if o.DebounceDelay < 0 || o.DebounceDelay > maxDebounceDelay {
		errs = append(errs, fmt.Errorf("debounce_delay: must be between 0s and %s, got %s",
			maxDebounceDelay, o.DebounceDelay))
	}

	if o.WatchInterval < minWatchInterval || o.WatchInterval > maxWatchInterval {
		errs = append(errs, fmt.Errorf("watch_interval: must be between %s and %s, got %s",
			minWatchInterval, maxWatchInterval, o.WatchInterval))
	}

	if o.ErrorRetryDelay < minErrorRetryDelay || o.ErrorRetryDelay > maxErrorRetryDelay {
		errs = append(errs, fmt.Errorf("error_retry_delay: must be between %s and %s, got %s",
			minErrorRetryDelay, maxErrorRetryDelay, o.ErrorRetryDelay))
	}

	if o.MaxHashSizeMB < minHashSizeMB || o.MaxHashSizeMB > maxHashSizeMB {
		errs = append(errs, fmt.Errorf("max_hash_size_mb: must be between %d and %d, got %d",
			minHashSizeMB, maxHashSizeMB, o.MaxHashSizeMB))
	}

	switch o.Strategy {
	case StrategyAuto, StrategyTag, StrategyHash:
	default:
		errs = append(errs, fmt.Errorf("strategy: must be one of auto, tag, hash; got %q", o.Strategy))
	}

	return errors.Join(errs...)
}

// buildStrategy constructs the detection strategy the options describe.
func (o Options) buildStrategy() Strategy {
	switch o.Strategy {
	case StrategyTag:
		return TagStrategy{}
	case StrategyHash:
		return HashStrategy{}
	default:
		return SizeBoundedStrategy{
			Primary:  HashStrategy{},
			Fallback: TagStrategy{},
			MaxBytes: int64(o.MaxHashSizeMB) * bytesPerMB,
		}
	}
}
