package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// Client reads blobs from a single Azure Storage container.
// It implements Accessor and the watch engine's access prober.
type Client struct {
	container *container.Client
	logger    *slog.Logger
}

// NewClient creates a container-scoped client using the default Azure
// credential chain (environment, workload identity, managed identity, CLI).
// serviceURL is typically "https://<account>.blob.core.windows.net".
func NewClient(serviceURL, containerName string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("store: creating credential: %w", err)
	}

	containerURL := strings.TrimSuffix(serviceURL, "/") + "/" + containerName

	cc, err := container.NewClient(containerURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("store: creating container client: %w", err)
	}

	return &Client{container: cc, logger: logger}, nil
}

// NewClientFromConnectionString creates a container-scoped client from a
// storage account connection string (shared-key auth).
func NewClientFromConnectionString(connectionString, containerName string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cc, err := container.NewClientFromConnectionString(connectionString, containerName, nil)
	if err != nil {
		return nil, fmt.Errorf("store: creating container client: %w", err)
	}

	return &Client{container: cc, logger: logger}, nil
}

// Metadata fetches blob properties and normalizes them into Metadata.
func (c *Client) Metadata(ctx context.Context, path string) (*Metadata, error) {
	props, err := c.container.NewBlobClient(path).GetProperties(ctx, nil)
	if err != nil {
		return nil, classifyError(path, err)
	}

	md := &Metadata{}

	if props.ContentLength != nil {
		md.Size = *props.ContentLength
	}

	if props.ETag != nil {
		md.ETag = trimETag(string(*props.ETag))
	}

	if props.LastModified != nil {
		md.ModifiedAt = props.LastModified.UTC()
	}

	c.logger.Debug("fetched blob metadata",
		slog.String("path", path),
		slog.Int64("size", md.Size),
		slog.String("etag", md.ETag),
	)

	return md, nil
}

// Open streams the blob's content. The returned reader retries interrupted
// body reads via the SDK's retry reader.
func (c *Client) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	resp, err := c.container.NewBlobClient(path).DownloadStream(ctx, nil)
	if err != nil {
		return nil, classifyError(path, err)
	}

	return resp.NewRetryReader(ctx, &blob.RetryReaderOptions{}), nil
}

// Exists reports whether the blob exists. Not-found is mapped to
// (false, nil) rather than an error.
func (c *Client) Exists(ctx context.Context, path string) (bool, error) {
	_, err := c.container.NewBlobClient(path).GetProperties(ctx, nil)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}

		return false, classifyError(path, err)
	}

	return true, nil
}

// ProbeAccess verifies container-level access by fetching container
// properties. Used once at provider construction to decide whether
// per-path watching is available.
func (c *Client) ProbeAccess(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if _, err := c.container.GetProperties(probeCtx, nil); err != nil {
		return classifyError(c.container.URL(), err)
	}

	return nil
}

// probeTimeout bounds the capability probe so a misconfigured endpoint
// cannot stall provider construction.
const probeTimeout = 30 * time.Second

// trimETag strips the surrounding quotes the storage service puts on ETags
// so values compare cleanly across property and listing responses.
func trimETag(etag string) string {
	return strings.Trim(etag, "\"")
}
