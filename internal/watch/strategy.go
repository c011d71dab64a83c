package watch

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/tonimelisma/blobwatch/internal/store"
)

// Detection carries everything a strategy needs for one check. It is owned
// by the calling token for the duration of a single poll and must not be
// retained by the strategy.
type Detection struct {
	Accessor     store.Accessor
	Path         string
	Metadata     *store.Metadata
	Fingerprints *FingerprintStore
}

// Strategy decides whether a blob changed since its last observation.
// A strategy that reports true must update the fingerprint store before
// returning, so a later check against the same key sees the new baseline.
// Errors are returned to the poll loop, which logs them and treats the
// check as "no change" for that cycle; only context cancellation should
// abort a poll.
type Strategy interface {
	// Check reports whether the blob at d.Path changed.
	Check(ctx context.Context, d *Detection) (bool, error)

	// Name identifies the strategy in logs.
	Name() string
}

// TagStrategy compares the blob's version tag (ETag) against the stored
// baseline. It never fetches content. The first check for a key has no
// baseline and reports a change: an observation baseline has no prior
// state to compare against.
type TagStrategy struct{}

func (TagStrategy) Name() string { return "tag" }

func (TagStrategy) Check(_ context.Context, d *Detection) (bool, error) {
	prev, ok := d.Fingerprints.Get(d.Path, KindTag)
	if ok && prev == d.Metadata.ETag {
		return false, nil
	}

	d.Fingerprints.Put(d.Path, KindTag, d.Metadata.ETag)

	return true, nil
}

// HashStrategy reads the full blob content and compares a digest of it
// against the stored baseline. It catches rewrites that keep the same
// version tag (rare, but possible across copy operations). As a side
// effect it also records the current version tag, so a later switch to
// TagStrategy for the same blob does not report a spurious first-time
// change.
type HashStrategy struct{}

func (HashStrategy) Name() string { return "hash" }

func (HashStrategy) Check(ctx context.Context, d *Detection) (bool, error) {
	digest, err := contentDigest(ctx, d.Accessor, d.Path)
	if err != nil {
		return false, err
	}

	// Keep the tag baseline current alongside the hash baseline.
	d.Fingerprints.Put(d.Path, KindTag, d.Metadata.ETag)

	prev, ok := d.Fingerprints.Get(d.Path, KindHash)
	if ok && prev == digest {
		return false, nil
	}

	d.Fingerprints.Put(d.Path, KindHash, digest)

	return true, nil
}

// contentDigest streams the blob and returns a base64-encoded SHA-256.
func contentDigest(ctx context.Context, accessor store.Accessor, path string) (string, error) {
	rc, err := accessor.Open(ctx, path)
	if err != nil {
		return "", fmt.Errorf("watch: opening %s for hashing: %w", path, err)
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", fmt.Errorf("watch: hashing %s: %w", path, err)
	}

	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// SizeBoundedStrategy routes each check by blob size: at or below MaxBytes
// it delegates to Primary (typically HashStrategy), above it to Fallback
// (typically TagStrategy). This bounds the worst-case network and CPU cost
// of watching large blobs. The decision is per invocation — a blob that
// grows past the threshold switches strategies on its next check.
type SizeBoundedStrategy struct {
	Primary  Strategy
	Fallback Strategy
	MaxBytes int64
}

func (s SizeBoundedStrategy) Name() string {
	return fmt.Sprintf("size-bounded(%s|%s)", s.Primary.Name(), s.Fallback.Name())
}

func (s SizeBoundedStrategy) Check(ctx context.Context, d *Detection) (bool, error) {
	if d.Metadata.Size > s.MaxBytes {
		return s.Fallback.Check(ctx, d)
	}

	return s.Primary.Check(ctx, d)
}
