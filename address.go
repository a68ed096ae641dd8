package itemstore

import (
	"fmt"
	"strings"
)

// S3Scheme is the required prefix of an object store address.
const S3Scheme = "s3://"

// Address is a parsed s3://bucket[/key-prefix] location.
// The zero value is not valid; use ParseAddress.
type Address struct {
	bucket    string
	keyPrefix string
}

// ParseAddress splits uri into bucket name and optional key prefix.
// Empty path segments are dropped, so "s3://b/p/" and "s3://b//p" both
// yield the key prefix "p".
func ParseAddress(uri string) (Address, error) {
	rest, ok := strings.CutPrefix(uri, S3Scheme)
	if !ok {
		return Address{}, fmt.Errorf("%w: %q must start with %s", ErrInvalidAddress, uri, S3Scheme)
	}

	var segments []string
	for _, seg := range strings.Split(rest, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 || !strings.HasPrefix(rest, segments[0]) {
		return Address{}, fmt.Errorf("%w: %q has no bucket name", ErrInvalidAddress, uri)
	}

	return Address{
		bucket:    segments[0],
		keyPrefix: strings.Join(segments[1:], "/"),
	}, nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(uri string) Address {
	addr, err := ParseAddress(uri)
	if err != nil {
		panic(err)
	}
	return addr
}

// String returns the normalized address, always ending with exactly one "/".
func (a Address) String() string {
	if a.keyPrefix == "" {
		return S3Scheme + a.bucket + "/"
	}
	return S3Scheme + a.bucket + "/" + a.keyPrefix + "/"
}

// Bucket returns the bucket name.
func (a Address) Bucket() string {
	return a.bucket
}

// KeyPrefix returns the key prefix and whether one was given.
func (a Address) KeyPrefix() (string, bool) {
	return a.keyPrefix, a.keyPrefix != ""
}

// Key resolves a caller-supplied key to the full object key.
func (a Address) Key(key string) string {
	if a.keyPrefix == "" {
		return key
	}
	return a.keyPrefix + "/" + key
}

// FolderPrefix resolves prefix like Key and makes sure the result ends with "/".
// An empty result stays empty and matches the whole bucket.
func (a Address) FolderPrefix(prefix string) string {
	full := a.Key(prefix)
	if full == "" || strings.HasSuffix(full, "/") {
		return full
	}
	return full + "/"
}

// RelativeKey strips the key prefix from a full object key.
func (a Address) RelativeKey(full string) string {
	if a.keyPrefix == "" {
		return full
	}
	return strings.TrimPrefix(full, a.keyPrefix+"/")
}

// CleanFolderPrefix checks a folder prefix passed to DeleteFolder and returns
// it without trailing "/". The empty prefix names everything under the client.
// A leading "/", an empty segment, or a "." or ".." segment is ErrInvalidKey,
// so every backend deletes exactly the folder the prefix spells out.
func CleanFolderPrefix(prefix string) (string, error) {
	folder := strings.TrimRight(prefix, "/")
	if folder == "" {
		if prefix != "" {
			return "", fmt.Errorf("%w: folder prefix %q", ErrInvalidKey, prefix)
		}
		return "", nil
	}
	for _, seg := range strings.Split(folder, "/") {
		switch seg {
		case "", ".", "..":
			return "", fmt.Errorf("%w: folder prefix %q", ErrInvalidKey, prefix)
		}
	}
	return folder, nil
}
