package watch

import (
	"log/slog"
	"sync"
)

// cleanupThreshold triggers a sweep when the entry count passes it on
// insert, covering high-churn workloads. The provider's periodic sweep
// (cleanupInterval in provider.go) covers steady-state idle.
const cleanupThreshold = 100

// tokenCache maps blob path to the live token for that path, deduplicating
// concurrent Watch calls. The cache never extends a token's lifetime:
// ownership stays with the Watch caller, and a token's disposal releases
// its slot here (release notification instead of weak references).
type tokenCache struct {
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*Token
}

func newTokenCache(logger *slog.Logger) *tokenCache {
	return &tokenCache{
		logger:  logger,
		entries: make(map[string]*Token),
	}
}

// getOrCreate returns the live token for path, creating and starting one
// via factory if none exists. Creation is serialized under the cache lock:
// exactly one caller constructs and starts a token, so a lost race never
// leaves an orphaned poll loop. Changed and disposed tokens are not live
// and are replaced.
func (c *tokenCache) getOrCreate(path string, factory func() *Token) *Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tok, ok := c.entries[path]; ok && tok.live() {
		return tok
	}

	tok := factory()
	c.entries[path] = tok

	if len(c.entries) > cleanupThreshold {
		c.sweepLocked()
	}

	return tok
}

// release removes the cache entry for a disposed token. The slot is only
// cleared if it still holds this instance — a replacement token installed
// after this one changed must not be evicted by the old token's disposal.
func (c *tokenCache) release(path string, tok *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.entries[path]; ok && cur == tok {
		delete(c.entries, path)
	}
}

// sweep removes entries whose token is no longer live.
func (c *tokenCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked()
}

func (c *tokenCache) sweepLocked() {
	removed := 0

	for path, tok := range c.entries {
		if !tok.live() {
			delete(c.entries, path)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("token cache swept",
			slog.Int("removed", removed),
			slog.Int("remaining", len(c.entries)),
		)
	}
}

// tokens returns a snapshot of all cached tokens, live or not.
func (c *tokenCache) tokens() []*Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Token, 0, len(c.entries))
	for _, tok := range c.entries {
		out = append(out, tok)
	}

	return out
}

// len returns the current entry count.
func (c *tokenCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
