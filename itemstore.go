// Package itemstore provides a small capability interface for reading,
// writing, listing and deleting items in an object store, and the
// local filesystem implementation of it.
//
// The S3 implementation lives in the awsadp package.
package itemstore

import (
	"context"
	"io"
	"time"
)

// DefaultPageSize is the number of objects returned by a single listing page
// when ListOptions.MaxKeys is not set.
const DefaultPageSize int32 = 1000

// BackendKind identifies the implementation behind a Client.
type BackendKind int

const (
	// KindUnknown is the zero value and never returned by a constructed client
	KindUnknown BackendKind = iota
	// KindS3 is an S3-compatible object store
	KindS3
	// KindFileSystem is a directory on the local filesystem
	KindFileSystem
)

func (k BackendKind) String() string {
	switch k {
	case KindS3:
		return "s3"
	case KindFileSystem:
		return "filesystem"
	default:
		return "unknown"
	}
}

// ObjectInfo describes a stored item.
type ObjectInfo struct {
	// Key is relative to the client's key prefix, so it can be passed back to ReadItem.
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag,omitempty"`
}

// ListOptions controls a single ListPage call.
type ListOptions struct {
	// ContinuationToken resumes from a previous ListPage. Empty starts from the beginning.
	ContinuationToken string
	// MaxKeys caps the objects in the page. Zero uses the client's page size.
	MaxKeys int32
}

// ListPage is one page of a listing.
type ListPage struct {
	Objects []ObjectInfo
	// NextContinuationToken is empty when there are no more pages.
	NextContinuationToken string
	IsTruncated           bool
}

// Client is the capability set shared by every backend.
// Implementations must be safe for concurrent use and return errors that
// wrap the sentinel values below:
//   - ErrNotFound: when a requested item does not exist
//   - ErrObjectFetch: when a read succeeded but carried no content
//   - ErrInvalidKey: when a key cannot be mapped into the backend
type Client interface {
	Kind() BackendKind
	// Address returns the normalized location, always ending with "/".
	Address() string

	// Verify performs a minimal request to check connectivity and credentials.
	Verify(ctx context.Context) error
	// Exists reports whether the item exists. A missing item is not an error.
	Exists(ctx context.Context, key string) (bool, error)

	ReadItem(ctx context.Context, key string) ([]byte, error)
	ReadTextItem(ctx context.Context, key string) (string, error)
	// ReadAsStream returns a forward-only reader over the item. The caller must close it.
	ReadAsStream(ctx context.Context, key string) (io.ReadCloser, error)

	WriteItem(ctx context.Context, key string, content []byte) error
	WriteTextItem(ctx context.Context, key string, text string) error

	// DeleteItem removes a single item. Deleting a missing item succeeds.
	DeleteItem(ctx context.Context, key string) error
	// DeleteFolder removes every item under prefix, across as many listing pages as needed.
	DeleteFolder(ctx context.Context, prefix string) error

	// List returns every item under prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// ListPage returns a single page of items under prefix.
	ListPage(ctx context.Context, prefix string, opts ListOptions) (*ListPage, error)
}
