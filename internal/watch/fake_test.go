package watch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/tonimelisma/blobwatch/internal/store"
)

// fakeAccessor is an in-memory store.Accessor for tests. Blobs are mutated
// mid-test to simulate remote updates.
type fakeAccessor struct {
	mu        sync.Mutex
	metas     map[string]store.Metadata
	contents  map[string][]byte
	err       error
	metaCalls int
	openCalls int
}

func newFakeAccessor() *fakeAccessor {
	return &fakeAccessor{
		metas:    make(map[string]store.Metadata),
		contents: make(map[string][]byte),
	}
}

// set installs or replaces a blob with the given version tag and content.
func (f *fakeAccessor) set(path, etag string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.metas[path] = store.Metadata{Size: int64(len(content)), ETag: etag}
	f.contents[path] = content
}

// setErr makes every subsequent call fail with err (nil clears it).
func (f *fakeAccessor) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
}

func (f *fakeAccessor) Metadata(_ context.Context, path string) (*store.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.metaCalls++

	if f.err != nil {
		return nil, f.err
	}

	md, ok := f.metas[path]
	if !ok {
		return nil, store.ErrNotFound
	}

	return &md, nil
}

func (f *fakeAccessor) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.openCalls++

	if f.err != nil {
		return nil, f.err
	}

	content, ok := f.contents[path]
	if !ok {
		return nil, store.ErrNotFound
	}

	return io.NopCloser(bytes.NewReader(content)), nil
}

func (f *fakeAccessor) Exists(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return false, f.err
	}

	_, ok := f.metas[path]

	return ok, nil
}

func (f *fakeAccessor) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.openCalls
}

// digestOf mirrors the hash strategy's fingerprint encoding.
func digestOf(content []byte) string {
	sum := sha256.Sum256(content)

	return base64.StdEncoding.EncodeToString(sum[:])
}

// seedBaseline records both fingerprints for a blob as if a prior token
// had already observed it, so tests can exercise "no change" paths.
func seedBaseline(fs *FingerprintStore, path, etag string, content []byte) {
	fs.Put(path, KindTag, etag)
	fs.Put(path, KindHash, digestOf(content))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
