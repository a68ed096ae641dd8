package awsadp

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sync/atomic"
	"time"

	"github.com/Songmu/flextime"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3File implements fs.File over a GetObject response body.
// It reads forward only and can be consumed once. Close may be called from
// another goroutine to abort a blocked Read.
type s3File struct {
	ctx    context.Context
	logger *slog.Logger
	bucket string
	key    string
	body   io.ReadCloser
	info   *s3FileInfo
	start  time.Time

	read   atomic.Int64
	closed atomic.Bool
}

func newS3File(ctx context.Context, logger *slog.Logger, bucket, key string, result *s3.GetObjectOutput) *s3File {
	return &s3File{
		ctx:    ctx,
		logger: logger,
		bucket: bucket,
		key:    key,
		body:   result.Body,
		info: &s3FileInfo{
			name:    path.Base(key),
			size:    aws.ToInt64(result.ContentLength),
			modTime: aws.ToTime(result.LastModified),
		},
		start: flextime.Now(),
	}
}

// Read implements io.Reader
func (f *s3File) Read(p []byte) (int, error) {
	if f.closed.Load() {
		return 0, fs.ErrClosed
	}
	n, err := f.body.Read(p)
	f.read.Add(int64(n))
	return n, err
}

// Close implements io.Closer
func (f *s3File) Close() error {
	if f.closed.Swap(true) {
		return fs.ErrClosed
	}

	f.logger.DebugContext(f.ctx, "s3 read-stream",
		"bucket", f.bucket,
		"key", f.key,
		"size", f.read.Load(),
		"elapsed", flextime.Now().Sub(f.start),
	)
	return f.body.Close()
}

// Stat implements fs.File
func (f *s3File) Stat() (fs.FileInfo, error) {
	if f.closed.Load() {
		return nil, fs.ErrClosed
	}
	return f.info, nil
}

// s3FileInfo implements fs.FileInfo for S3 objects
type s3FileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (fi *s3FileInfo) Name() string       { return fi.name }
func (fi *s3FileInfo) Size() int64        { return fi.size }
func (fi *s3FileInfo) Mode() os.FileMode  { return 0444 }
func (fi *s3FileInfo) ModTime() time.Time { return fi.modTime }
func (fi *s3FileInfo) IsDir() bool        { return false }
func (fi *s3FileInfo) Sys() interface{}   { return nil }
