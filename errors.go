package itemstore

import (
	"errors"
	"fmt"
)

// Error variables that Client implementations wrap
var (
	// ErrInvalidAddress is returned when an address has the wrong scheme or no bucket
	ErrInvalidAddress = errors.New("invalid address")
	// ErrObjectFetch is returned when a read completed but carried no content
	ErrObjectFetch = errors.New("object fetch failed")
	// ErrNotFound is returned when a requested item does not exist
	ErrNotFound = errors.New("item not found")
	// ErrInvalidKey is returned when a key escapes the client's root
	ErrInvalidKey = errors.New("invalid key")
)

// Error records the operation and location of a failed call.
type Error struct {
	// Op is the capability that failed, e.g. "read", "write", "delete-folder"
	Op string
	// Bucket is empty for backends without buckets
	Bucket string
	// Key is the resolved key, including any key prefix
	Key string
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Bucket != "" && e.Key != "":
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	case e.Bucket != "":
		return fmt.Sprintf("%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	case e.Key != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with operation context.
func NewError(op, bucket, key string, err error) *Error {
	return &Error{Op: op, Bucket: bucket, Key: key, Err: err}
}

// NotFound marks err as ErrNotFound while keeping the original error in the chain.
func NotFound(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNotFound, err)
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
