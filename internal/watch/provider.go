package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/blobwatch/internal/store"
)

// ErrProviderClosed is returned by Watch after the provider shut down.
var ErrProviderClosed = errors.New("watch: provider closed")

// cleanupInterval is the period of the cache's idle sweep.
const cleanupInterval = 5 * time.Minute

// AccessProber reports whether container-level access to the blob
// namespace can be established. Resolved once at provider construction to
// pick between enhanced and legacy mode; store.Client implements it.
type AccessProber interface {
	ProbeAccess(ctx context.Context) error
}

// Provider is the façade over the watch engine. In enhanced mode it hands
// out one token per blob path from the cache, each with the configured
// strategy and debounce. When container-level access is unavailable it
// degrades to legacy mode: a single shared token covering every Watch
// call, tag comparison only, no debounce.
type Provider struct {
	accessor     store.Accessor
	opts         Options
	logger       *slog.Logger
	fingerprints *FingerprintStore
	cache        *tokenCache
	enhanced     bool

	// baseCtx parents every token's poll loop so shutdown reaches loops
	// that consumers forgot to dispose.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	cleanupStop chan struct{}
	cleanupDone chan struct{}

	legacyMu sync.Mutex
	legacy   *Token

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewProvider validates opts, resolves the operating mode via prober (nil
// means enhanced), and starts the cache's periodic cleanup. The fingerprint
// store is created here and owned by the provider — independent providers
// never share baselines.
func NewProvider(ctx context.Context, accessor store.Accessor, prober AccessProber, opts Options, logger *slog.Logger) (*Provider, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("watch: invalid options: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	enhanced := true

	if prober != nil {
		if err := prober.ProbeAccess(ctx); err != nil {
			// Degraded, not fatal: watching still works, just coarsely.
			logger.Warn("container-level access unavailable, falling back to legacy mode",
				slog.String("error", err.Error()),
			)

			enhanced = false
		}
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())

	p := &Provider{
		accessor:     accessor,
		opts:         opts,
		logger:       logger,
		fingerprints: NewFingerprintStore(),
		cache:        newTokenCache(logger),
		enhanced:     enhanced,
		baseCtx:      baseCtx,
		baseCancel:   baseCancel,
		cleanupStop:  make(chan struct{}),
		cleanupDone:  make(chan struct{}),
	}

	go p.runCleanup()

	logger.Info("watch provider started",
		slog.Bool("enhanced", enhanced),
		slog.String("strategy", opts.Strategy),
		slog.Duration("interval", opts.WatchInterval),
		slog.Duration("debounce", opts.DebounceDelay),
	)

	return p, nil
}

// Enhanced reports whether per-path watching is active.
func (p *Provider) Enhanced() bool {
	return p.enhanced
}

// Watch returns the live token for path, creating one if none exists.
// Concurrent calls for the same path return the same instance. A token
// that already fired is terminal and is replaced by a fresh one. In legacy
// mode every call returns the single shared token regardless of path.
func (p *Provider) Watch(path string) (*Token, error) {
	if p.closed.Load() {
		return nil, ErrProviderClosed
	}

	if !p.enhanced {
		return p.legacyToken(path), nil
	}

	tok := p.cache.getOrCreate(path, func() *Token {
		return p.newPathToken(path)
	})

	return tok, nil
}

// newPathToken builds and starts an enhanced-mode token. Called under the
// cache lock so exactly one loop starts per creation race.
func (p *Provider) newPathToken(path string) *Token {
	tok := newToken(
		path,
		p.accessor,
		p.opts.buildStrategy(),
		p.fingerprints,
		tokenConfig{
			watchInterval:   p.opts.WatchInterval,
			errorRetryDelay: p.opts.ErrorRetryDelay,
			debounceDelay:   p.opts.DebounceDelay,
		},
		func(t *Token) { p.cache.release(path, t) },
		p.logger,
	)

	tok.start(p.baseCtx)

	return tok
}

// legacyToken returns the shared coarse token, creating it on first use.
// It watches a single designated path (Options.LegacyPath, or the first
// path anyone asked for), compares version tags only, and fires without a
// debounce window.
func (p *Provider) legacyToken(requestedPath string) *Token {
	p.legacyMu.Lock()
	defer p.legacyMu.Unlock()

	if p.legacy != nil && p.legacy.live() {
		return p.legacy
	}

	path := p.opts.LegacyPath
	if path == "" {
		path = requestedPath
	}

	tok := newToken(
		path,
		p.accessor,
		TagStrategy{},
		p.fingerprints,
		tokenConfig{
			watchInterval:   p.opts.WatchInterval,
			errorRetryDelay: p.opts.ErrorRetryDelay,
			debounceDelay:   0,
		},
		nil,
		p.logger,
	)

	tok.start(p.baseCtx)
	p.legacy = tok

	return tok
}

// runCleanup drives the periodic cache sweep until Close.
func (p *Provider) runCleanup() {
	defer close(p.cleanupDone)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.cache.sweep()
		case <-p.cleanupStop:
			return
		}
	}
}

// Close shuts the provider down: every still-reachable token is disposed
// concurrently (each bounded by the token's own dispose wait), the cleanup
// goroutine is stopped, and remaining loops are cancelled through the base
// context. Idempotent. Watch fails with ErrProviderClosed afterwards.
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)

		tokens := p.cache.tokens()

		p.legacyMu.Lock()
		if p.legacy != nil {
			tokens = append(tokens, p.legacy)
		}
		p.legacyMu.Unlock()

		var g errgroup.Group
		for _, tok := range tokens {
			g.Go(func() error {
				tok.Close()

				return nil
			})
		}

		_ = g.Wait()

		// Belt and braces: cancel loops for tokens no longer in the cache
		// whose owners never disposed them.
		p.baseCancel()

		close(p.cleanupStop)
		<-p.cleanupDone

		p.logger.Info("watch provider stopped", slog.Int("tokens_disposed", len(tokens)))
	})

	return nil
}
