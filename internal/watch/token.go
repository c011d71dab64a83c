package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tonimelisma/blobwatch/internal/store"
)

// ErrTokenDisposed is returned when operating on a token that has already
// been disposed. Disposed-state violations are always reported to the
// caller, never silently ignored.
var ErrTokenDisposed = errors.New("watch: token disposed")

// disposeWait bounds how long Close waits for the poll loop to exit before
// giving up and logging. Release does not wait at all.
const disposeWait = 5 * time.Second

// tokenState is the token's position in its lifecycle. Transitions are
// strictly linear: watching -> debouncePending -> changed, with disposed
// reachable from anywhere. Changed and disposed are terminal.
type tokenState int

const (
	stateWatching tokenState = iota
	stateDebouncePending
	stateChanged
	stateDisposed
)

// Callback is invoked when a token's debounced change fires. Callbacks run
// synchronously on the debounce timer's goroutine, outside the token lock,
// so they may register further callbacks or dispose the token.
type Callback func()

// Registration identifies a registered callback. The zero value is a no-op
// handle, returned when the callback already ran at registration time.
type Registration struct {
	token *Token
	id    uuid.UUID
}

// Unregister removes the callback. Safe to call more than once, from
// inside the callback itself, and on the zero value.
func (r Registration) Unregister() {
	if r.token == nil {
		return
	}

	r.token.unregister(r.id)
}

// Token is a single-use handle for an active change-detection session on
// one blob path. It owns a background poll loop, a debounce timer, and a
// callback registry. Once a token reports changed it never reverts; the
// consumer disposes it and calls Provider.Watch again for a fresh one.
type Token struct {
	path         string
	accessor     store.Accessor
	strategy     Strategy
	fingerprints *FingerprintStore
	logger       *slog.Logger

	watchInterval   time.Duration
	errorRetryDelay time.Duration
	debounceDelay   time.Duration

	// onRelease tells the owning cache this token's slot is reclaimable.
	// Nil for the legacy shared token.
	onRelease func(*Token)

	cancel context.CancelFunc
	done   chan struct{}

	// sleepFunc waits between polls. Tests override it to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error

	changed atomic.Bool

	// mu protects state, debounce, and callbacks. It is scoped to this
	// token alone; contention is never cross-token.
	mu        sync.Mutex
	state     tokenState
	debounce  *time.Timer
	callbacks map[uuid.UUID]Callback

	disposeOnce sync.Once
}

// tokenConfig bundles the knobs a token needs at construction.
type tokenConfig struct {
	watchInterval   time.Duration
	errorRetryDelay time.Duration
	debounceDelay   time.Duration
}

// newToken constructs a token without starting its poll loop. The caller
// (cache or provider) starts it with start() once the token is installed,
// so a creation race never leaves an orphaned running loop.
func newToken(
	path string,
	accessor store.Accessor,
	strategy Strategy,
	fingerprints *FingerprintStore,
	cfg tokenConfig,
	onRelease func(*Token),
	logger *slog.Logger,
) *Token {
	return &Token{
		path:            path,
		accessor:        accessor,
		strategy:        strategy,
		fingerprints:    fingerprints,
		logger:          logger,
		watchInterval:   cfg.watchInterval,
		errorRetryDelay: cfg.errorRetryDelay,
		debounceDelay:   cfg.debounceDelay,
		onRelease:       onRelease,
		cancel:          func() {},
		done:            make(chan struct{}),
		sleepFunc:       timeSleep,
		callbacks:       make(map[uuid.UUID]Callback),
	}
}

// start launches the background poll loop.
func (t *Token) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	t.cancel = cancel

	go t.run(ctx)
}

// Path returns the blob path this token watches.
func (t *Token) Path() string {
	return t.path
}

// HasChanged reports whether the debounced change has fired. It never
// reverts to false.
func (t *Token) HasChanged() bool {
	return t.changed.Load()
}

// RegisterCallback registers cb to run when the token's change fires.
// If the token already changed, cb runs synchronously before the call
// returns and the zero Registration is returned. Registering on a
// disposed token returns ErrTokenDisposed.
func (t *Token) RegisterCallback(cb Callback) (Registration, error) {
	t.mu.Lock()

	switch t.state {
	case stateDisposed:
		t.mu.Unlock()

		return Registration{}, ErrTokenDisposed

	case stateChanged:
		// Invoke outside the lock so cb can safely touch the token.
		t.mu.Unlock()
		cb()

		return Registration{}, nil
	}

	id := uuid.New()
	t.callbacks[id] = cb
	t.mu.Unlock()

	return Registration{token: t, id: id}, nil
}

// unregister removes a callback entry. No-op if the token already fired
// or was disposed (the registry is cleared in both cases).
func (t *Token) unregister(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.callbacks, id)
}

// Close disposes the token and waits (bounded) for the poll loop to exit.
// Idempotent: repeated calls are no-ops beyond the wait. Safe to call from
// inside a running callback — callbacks run on the timer goroutine, never
// on the poll loop, so waiting for the loop cannot deadlock.
func (t *Token) Close() {
	t.dispose()

	select {
	case <-t.done:
	case <-time.After(disposeWait):
		t.logger.Warn("watch loop did not stop promptly",
			slog.String("path", t.path),
			slog.Duration("waited", disposeWait),
		)
	}
}

// Release disposes the token without waiting for the poll loop to exit.
// For callers that cannot block; the loop observes cancellation at its
// next suspension point.
func (t *Token) Release() {
	t.dispose()
}

// dispose performs the one-time teardown: terminal state, timer stop,
// registry clear, loop cancellation, cache slot release.
func (t *Token) dispose() {
	t.disposeOnce.Do(func() {
		t.mu.Lock()
		t.state = stateDisposed

		if t.debounce != nil {
			t.debounce.Stop()
		}

		t.callbacks = nil
		t.mu.Unlock()

		t.cancel()

		if t.onRelease != nil {
			t.onRelease(t)
		}

		t.logger.Debug("token disposed", slog.String("path", t.path))
	})
}

// live reports whether the token can still serve a Watch call. Changed
// tokens are terminal and must be replaced, so they are not live.
func (t *Token) live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state == stateWatching || t.state == stateDebouncePending
}

// run is the poll loop: strictly sequential fetch -> evaluate -> sleep,
// one attempt at a time. Transient errors are contained here — logged and
// treated as "no change", with the error-retry delay replacing the normal
// interval. Cancellation exits cleanly and silently.
func (t *Token) run(ctx context.Context) {
	defer close(t.done)

	t.logger.Debug("watch loop started",
		slog.String("path", t.path),
		slog.String("strategy", t.strategy.Name()),
		slog.Duration("interval", t.watchInterval),
	)

	for {
		if ctx.Err() != nil {
			return
		}

		changed, err := t.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			t.logger.Warn("poll failed, treating as no change",
				slog.String("path", t.path),
				slog.String("error", err.Error()),
				slog.Duration("retry_in", t.errorRetryDelay),
			)

			if t.sleepFunc(ctx, t.errorRetryDelay) != nil {
				return
			}

			continue
		}

		if changed {
			t.armDebounce()
		}

		if t.sleepFunc(ctx, t.watchInterval) != nil {
			return
		}
	}
}

// poll performs one fetch-and-evaluate attempt.
func (t *Token) poll(ctx context.Context) (bool, error) {
	md, err := t.accessor.Metadata(ctx, t.path)
	if err != nil {
		return false, err
	}

	d := &Detection{
		Accessor:     t.accessor,
		Path:         t.path,
		Metadata:     md,
		Fingerprints: t.fingerprints,
	}

	return t.strategy.Check(ctx, d)
}

// armDebounce starts the debounce window, or resets it if one is already
// pending so rapid successive changes coalesce into one notification.
func (t *Token) armDebounce() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case stateChanged, stateDisposed:
		return

	case stateDebouncePending:
		t.debounce.Reset(t.debounceDelay)

		t.logger.Debug("debounce window reset", slog.String("path", t.path))

		return
	}

	t.state = stateDebouncePending
	t.debounce = time.AfterFunc(t.debounceDelay, t.fire)

	t.logger.Debug("change detected, debounce armed",
		slog.String("path", t.path),
		slog.Duration("delay", t.debounceDelay),
	)
}

// fire runs on the debounce timer's goroutine. It transitions the token to
// changed and invokes a snapshot of the registered callbacks outside the
// lock. The poll loop is cancelled afterwards: a changed token is terminal,
// so further polling would be wasted work.
func (t *Token) fire() {
	t.mu.Lock()

	if t.state != stateDebouncePending {
		t.mu.Unlock()

		return
	}

	t.state = stateChanged
	t.changed.Store(true)

	cbs := make([]Callback, 0, len(t.callbacks))
	for _, cb := range t.callbacks {
		cbs = append(cbs, cb)
	}

	t.callbacks = make(map[uuid.UUID]Callback)
	t.mu.Unlock()

	t.logger.Info("blob changed",
		slog.String("path", t.path),
		slog.Int("callbacks", len(cbs)),
	)

	for _, cb := range cbs {
		cb()
	}

	t.cancel()
}

// timeSleep waits for the given duration or until the context is canceled.
// Default sleepFunc for tokens; tests inject a fake.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
