package watch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDetection(t *testing.T, acc *fakeAccessor, fs *FingerprintStore, path string) *Detection {
	t.Helper()

	md, err := acc.Metadata(context.Background(), path)
	require.NoError(t, err)

	return &Detection{
		Accessor:     acc,
		Path:         path,
		Metadata:     md,
		Fingerprints: fs,
	}
}

func TestTagStrategy_FirstObservationReportsChange(t *testing.T) {
	acc := newFakeAccessor()
	acc.set("app.json", "v1", []byte(`{}`))

	fs := NewFingerprintStore()

	changed, err := TagStrategy{}.Check(context.Background(), newDetection(t, acc, fs, "app.json"))
	require.NoError(t, err)
	assert.True(t, changed, "no prior baseline: first observation reports a change")

	// The baseline must be recorded before the result is observable.
	got, ok := fs.Get("app.json", KindTag)
	require.True(t, ok)
	assert.Equal(t, "v1", got)
}

func TestTagStrategy_UnchangedTag(t *testing.T) {
	acc := newFakeAccessor()
	acc.set("app.json", "v1", []byte(`{}`))

	fs := NewFingerprintStore()

	_, err := TagStrategy{}.Check(context.Background(), newDetection(t, acc, fs, "app.json"))
	require.NoError(t, err)

	changed, err := TagStrategy{}.Check(context.Background(), newDetection(t, acc, fs, "app.json"))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestTagStrategy_ChangedTag(t *testing.T) {
	acc := newFakeAccessor()
	acc.set("app.json", "v1", []byte(`{}`))

	fs := NewFingerprintStore()

	_, err := TagStrategy{}.Check(context.Background(), newDetection(t, acc, fs, "app.json"))
	require.NoError(t, err)

	acc.set("app.json", "v2", []byte(`{}`))

	changed, err := TagStrategy{}.Check(context.Background(), newDetection(t, acc, fs, "app.json"))
	require.NoError(t, err)
	assert.True(t, changed)

	got, _ := fs.Get("app.json", KindTag)
	assert.Equal(t, "v2", got)
}

func TestTagStrategy_NeverFetchesContent(t *testing.T) {
	acc := newFakeAccessor()
	acc.set("app.json", "v1", []byte(`{}`))

	fs := NewFingerprintStore()

	_, err := TagStrategy{}.Check(context.Background(), newDetection(t, acc, fs, "app.json"))
	require.NoError(t, err)
	assert.Zero(t, acc.openCount())
}

func TestHashStrategy_DetectsContentChangeUnderSameTag(t *testing.T) {
	acc := newFakeAccessor()
	acc.set("app.json", "v1", []byte(`{"a":1}`))

	fs := NewFingerprintStore()

	_, err := HashStrategy{}.Check(context.Background(), newDetection(t, acc, fs, "app.json"))
	require.NoError(t, err)

	// Content rewritten but the tag stays identical.
	acc.set("app.json", "v1", []byte(`{"a":2}`))

	changed, err := HashStrategy{}.Check(context.Background(), newDetection(t, acc, fs, "app.json"))
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestHashStrategy_UnchangedContent(t *testing.T) {
	acc := newFakeAccessor()
	acc.set("app.json", "v1", []byte(`{"a":1}`))

	fs := NewFingerprintStore()

	changed, err := HashStrategy{}.Check(context.Background(), newDetection(t, acc, fs, "app.json"))
	require.NoError(t, err)
	assert.True(t, changed, "first observation")

	changed, err = HashStrategy{}.Check(context.Background(), newDetection(t, acc, fs, "app.json"))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestHashStrategy_RecordsTagBaseline(t *testing.T) {
	acc := newFakeAccessor()
	acc.set("app.json", "v7", []byte(`{"a":1}`))

	fs := NewFingerprintStore()

	_, err := HashStrategy{}.Check(context.Background(), newDetection(t, acc, fs, "app.json"))
	require.NoError(t, err)

	// Switching to the tag strategy must not report a spurious
	// first-time change: the hash check recorded the tag too.
	changed, err := TagStrategy{}.Check(context.Background(), newDetection(t, acc, fs, "app.json"))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestHashStrategy_PropagatesOpenError(t *testing.T) {
	acc := newFakeAccessor()
	acc.set("app.json", "v1", []byte(`{}`))

	fs := NewFingerprintStore()
	d := newDetection(t, acc, fs, "app.json")

	acc.setErr(errors.New("boom"))

	_, err := HashStrategy{}.Check(context.Background(), d)
	require.Error(t, err)
}

func TestSizeBounded_LargeBlobUsesFallback(t *testing.T) {
	acc := newFakeAccessor()
	acc.set("big.json", "v1", make([]byte, 2048))

	fs := NewFingerprintStore()

	s := SizeBoundedStrategy{
		Primary:  HashStrategy{},
		Fallback: TagStrategy{},
		MaxBytes: 1024,
	}

	changed, err := s.Check(context.Background(), newDetection(t, acc, fs, "big.json"))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Zero(t, acc.openCount(), "fallback must not fetch content")

	// Only the tag baseline exists.
	_, hasHash := fs.Get("big.json", KindHash)
	assert.False(t, hasHash)
}

func TestSizeBounded_SmallBlobUsesPrimary(t *testing.T) {
	acc := newFakeAccessor()
	acc.set("small.json", "v1", make([]byte, 1024))

	fs := NewFingerprintStore()

	s := SizeBoundedStrategy{
		Primary:  HashStrategy{},
		Fallback: TagStrategy{},
		MaxBytes: 1024,
	}

	// Exactly at the threshold routes to the primary.
	changed, err := s.Check(context.Background(), newDetection(t, acc, fs, "small.json"))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, acc.openCount())
}

func TestSizeBounded_DecisionIsPerInvocation(t *testing.T) {
	acc := newFakeAccessor()
	acc.set("grow.json", "v1", make([]byte, 100))

	fs := NewFingerprintStore()

	s := SizeBoundedStrategy{
		Primary:  HashStrategy{},
		Fallback: TagStrategy{},
		MaxBytes: 1024,
	}

	_, err := s.Check(context.Background(), newDetection(t, acc, fs, "grow.json"))
	require.NoError(t, err)
	assert.Equal(t, 1, acc.openCount())

	// The blob grows past the threshold: the next check must not hash.
	acc.set("grow.json", "v2", make([]byte, 4096))

	_, err = s.Check(context.Background(), newDetection(t, acc, fs, "grow.json"))
	require.NoError(t, err)
	assert.Equal(t, 1, acc.openCount())
}
