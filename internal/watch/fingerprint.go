package watch

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// Fingerprint kinds. Each (path, kind) pair has its own store entry, so the
// tag and hash strategies never overwrite each other's baselines.
const (
	KindTag  = "tag"
	KindHash = "hash"
)

// maxFingerprintEntries caps the store. Evicting an old entry is harmless:
// the next check for that blob re-baselines and reports a change, which the
// consumer handles the same way as any other change.
const maxFingerprintEntries = 4096

// FingerprintStore holds the last-seen fingerprint per (path, kind). It is
// safe for concurrent use by multiple poll loops. Entries are replaced,
// never merged. The store is always passed explicitly into Provider and
// token constructors so independent providers never share baselines.
type FingerprintStore struct {
	entries *lru.Cache
}

// NewFingerprintStore creates an empty store.
func NewFingerprintStore() *FingerprintStore {
	cache, err := lru.New(maxFingerprintEntries)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}

	return &FingerprintStore{entries: cache}
}

// Get returns the stored fingerprint for (path, kind), if any.
func (s *FingerprintStore) Get(path, kind string) (string, bool) {
	v, ok := s.entries.Get(fingerprintKey(path, kind))
	if !ok {
		return "", false
	}

	return v.(string), true
}

// Put replaces the fingerprint for (path, kind).
func (s *FingerprintStore) Put(path, kind, fingerprint string) {
	s.entries.Add(fingerprintKey(path, kind), fingerprint)
}

// Len returns the number of stored fingerprints.
func (s *FingerprintStore) Len() int {
	return s.entries.Len()
}

func fingerprintKey(path, kind string) string {
	return fmt.Sprintf("%s:%s", path, kind)
}
