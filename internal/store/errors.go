package store

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// Sentinel errors for storage error classification.
// Use errors.Is(err, store.ErrNotFound) to check.
var (
	ErrNotFound     = errors.New("store: blob not found")
	ErrUnauthorized = errors.New("store: unauthorized")
	ErrForbidden    = errors.New("store: forbidden")
	ErrConflict     = errors.New("store: conflict")
	ErrThrottled    = errors.New("store: throttled")
	ErrServerError  = errors.New("store: server error")
)

// StoreError wraps a sentinel error with the blob path, HTTP status code,
// and the storage error code for debugging.
type StoreError struct {
	Path       string
	StatusCode int
	Code       string
	Err        error // sentinel, for errors.Is()
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("store: %s: HTTP %d (%s)", e.Path, e.StatusCode, e.Code)
	}

	return fmt.Sprintf("store: %s: HTTP %d", e.Path, e.StatusCode)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// classifyError maps an Azure SDK error to a StoreError carrying a sentinel.
// Non-HTTP errors (network, DNS) pass through unchanged.
func classifyError(path string, err error) error {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}

	return &StoreError{
		Path:       path,
		StatusCode: respErr.StatusCode,
		Code:       respErr.ErrorCode,
		Err:        classifyStatus(respErr.StatusCode),
	}
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isNotFound reports whether an SDK error means the blob or container
// does not exist.
func isNotFound(err error) bool {
	return bloberror.HasCode(err,
		bloberror.BlobNotFound,
		bloberror.ContainerNotFound,
		bloberror.ResourceNotFound,
	)
}
