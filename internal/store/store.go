// Package store provides access to blobs in an Azure Storage container:
// metadata lookup, content streaming, existence checks, and error
// classification. It is the only package that talks to the Azure SDK.
package store

import (
	"context"
	"io"
	"time"
)

// Metadata describes a blob without its content. ETag is the storage
// service's version tag with surrounding quotes stripped.
type Metadata struct {
	Size       int64
	ETag       string
	ModifiedAt time.Time
}

// Accessor is the capability consumed by the watch engine. Defined at the
// consumer boundary per Go convention "accept interfaces, return structs";
// Client provides the real implementation.
type Accessor interface {
	// Metadata fetches size, version tag, and modification time for a blob.
	Metadata(ctx context.Context, path string) (*Metadata, error)

	// Open returns a reader over the blob's content. The caller must close it.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists reports whether the blob exists. A missing blob is not an error.
	Exists(ctx context.Context, path string) (bool, error)
}
