package awsadp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Songmu/flextime"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/mashiike/itemstore"
)

const defaultRegion = "us-east-1"

// S3ClientConfig provides configuration for S3Client
type S3ClientConfig struct {
	// Address is the s3://bucket[/key-prefix] location (required)
	Address string
	// Client replaces the SDK client, mainly for tests. When nil, one is built
	// from the default AWS configuration and the fields below.
	Client       S3API
	Region       string // Optional, falls back to the AWS config, then us-east-1
	Endpoint     string // Optional, for S3-compatible services such as minio
	UsePathStyle bool
	Credentials  aws.CredentialsProvider // Optional, defaults to the AWS credential chain
	// PageSize is the listing page size, at most 1000 because a bulk delete takes one page
	PageSize int32
	Logger   *slog.Logger // Optional logger, defaults to slog.Default()
}

// S3Client implements itemstore.Client using AWS S3
type S3Client struct {
	api      S3API
	address  itemstore.Address
	pageSize int32
	logger   *slog.Logger
}

var _ itemstore.Client = (*S3Client)(nil)

// NewS3Client creates a new S3Client. The address is parsed before anything
// else, so an invalid address fails without loading AWS configuration.
func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*S3Client, error) {
	address, err := itemstore.ParseAddress(cfg.Address)
	if err != nil {
		return nil, err
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > itemstore.DefaultPageSize {
		pageSize = itemstore.DefaultPageSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := cfg.Client
	if api == nil {
		api, err = newSDKClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	return &S3Client{
		api:      api,
		address:  address,
		pageSize: pageSize,
		logger:   logger,
	}, nil
}

func newSDKClient(ctx context.Context, cfg S3ClientConfig) (*s3.Client, error) {
	var optFns []func(*config.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, config.WithRegion(cfg.Region))
	}
	if cfg.Credentials != nil {
		optFns = append(optFns, config.WithCredentialsProvider(cfg.Credentials))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = defaultRegion
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

func (c *S3Client) Kind() itemstore.BackendKind {
	return itemstore.KindS3
}

func (c *S3Client) Address() string {
	return c.address.String()
}

// Bucket returns the bucket name from the address
func (c *S3Client) Bucket() string {
	return c.address.Bucket()
}

// KeyPrefix returns the key prefix from the address and whether one was given
func (c *S3Client) KeyPrefix() (string, bool) {
	return c.address.KeyPrefix()
}

func (c *S3Client) Verify(ctx context.Context) error {
	start := flextime.Now()
	_, err := c.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.address.Bucket()),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return itemstore.NewError("verify", c.address.Bucket(), "", err)
	}
	c.logDone(ctx, "verify", "", start)
	return nil
}

func (c *S3Client) Exists(ctx context.Context, key string) (bool, error) {
	fullKey := c.address.Key(key)
	start := flextime.Now()

	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.address.Bucket()),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, itemstore.NewError("exists", c.address.Bucket(), fullKey, err)
	}
	c.logDone(ctx, "exists", fullKey, start)
	return true, nil
}

func (c *S3Client) ReadItem(ctx context.Context, key string) ([]byte, error) {
	fullKey := c.address.Key(key)
	start := flextime.Now()

	result, err := c.getObject(ctx, "read", fullKey)
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, itemstore.NewError("read", c.address.Bucket(), fullKey, fmt.Errorf("failed to read object body: %w", err))
	}
	c.logDone(ctx, "read", fullKey, start, "size", len(data))
	return data, nil
}

func (c *S3Client) ReadTextItem(ctx context.Context, key string) (string, error) {
	data, err := c.ReadItem(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadAsStream returns the object body without buffering it. The returned
// reader also implements fs.File.
func (c *S3Client) ReadAsStream(ctx context.Context, key string) (io.ReadCloser, error) {
	fullKey := c.address.Key(key)

	result, err := c.getObject(ctx, "read-stream", fullKey)
	if err != nil {
		return nil, err
	}
	return newS3File(ctx, c.logger, c.address.Bucket(), fullKey, result), nil
}

func (c *S3Client) getObject(ctx context.Context, op, fullKey string) (*s3.GetObjectOutput, error) {
	result, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.address.Bucket()),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, itemstore.NewError(op, c.address.Bucket(), fullKey, itemstore.NotFound(err))
		}
		return nil, itemstore.NewError(op, c.address.Bucket(), fullKey, err)
	}
	if result == nil || result.Body == nil {
		return nil, itemstore.NewError(op, c.address.Bucket(), fullKey, itemstore.ErrObjectFetch)
	}
	return result, nil
}

func (c *S3Client) WriteItem(ctx context.Context, key string, content []byte) error {
	fullKey := c.address.Key(key)
	start := flextime.Now()

	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.address.Bucket()),
		Key:           aws.String(fullKey),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(mimetype.Detect(content).String()),
	})
	if err != nil {
		return itemstore.NewError("write", c.address.Bucket(), fullKey, err)
	}
	c.logDone(ctx, "write", fullKey, start, "size", len(content))
	return nil
}

func (c *S3Client) WriteTextItem(ctx context.Context, key string, text string) error {
	return c.WriteItem(ctx, key, []byte(text))
}

func (c *S3Client) DeleteItem(ctx context.Context, key string) error {
	fullKey := c.address.Key(key)
	start := flextime.Now()

	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.address.Bucket()),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		return itemstore.NewError("delete", c.address.Bucket(), fullKey, err)
	}
	c.logDone(ctx, "delete", fullKey, start)
	return nil
}

// DeleteFolder removes every object under prefix, one bulk delete per listing
// page. Objects the service refuses to delete are logged and skipped.
func (c *S3Client) DeleteFolder(ctx context.Context, prefix string) error {
	clean, err := itemstore.CleanFolderPrefix(prefix)
	if err != nil {
		return itemstore.NewError("delete-folder", c.address.Bucket(), prefix, err)
	}
	folder := c.address.FolderPrefix(clean)
	start := flextime.Now()

	var deleted, failed int
	err = c.walk(ctx, folder, func(objects []types.Object) error {
		if len(objects) == 0 {
			return nil
		}
		ids := make([]types.ObjectIdentifier, 0, len(objects))
		for _, obj := range objects {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}

		result, err := c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.address.Bucket()),
			Delete: &types.Delete{
				Objects: ids,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects: %w", err)
		}

		for _, e := range result.Errors {
			c.logger.WarnContext(ctx, "failed to delete object",
				"bucket", c.address.Bucket(),
				"key", aws.ToString(e.Key),
				"code", aws.ToString(e.Code),
				"message", aws.ToString(e.Message),
			)
		}
		failed += len(result.Errors)
		deleted += len(ids) - len(result.Errors)
		return nil
	})
	if err != nil {
		return itemstore.NewError("delete-folder", c.address.Bucket(), folder, err)
	}
	c.logDone(ctx, "delete-folder", folder, start, "deleted", deleted, "failed", failed)
	return nil
}

func (c *S3Client) List(ctx context.Context, prefix string) ([]itemstore.ObjectInfo, error) {
	fullPrefix := c.address.Key(prefix)

	objects := []itemstore.ObjectInfo{}
	err := c.walk(ctx, fullPrefix, func(page []types.Object) error {
		for _, obj := range page {
			objects = append(objects, c.objectInfo(obj))
		}
		return nil
	})
	if err != nil {
		return nil, itemstore.NewError("list", c.address.Bucket(), fullPrefix, err)
	}
	return objects, nil
}

func (c *S3Client) ListPage(ctx context.Context, prefix string, opts itemstore.ListOptions) (*itemstore.ListPage, error) {
	fullPrefix := c.address.Key(prefix)

	limit := opts.MaxKeys
	if limit <= 0 || limit > c.pageSize {
		limit = c.pageSize
	}
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(c.address.Bucket()),
		MaxKeys: aws.Int32(limit),
	}
	if fullPrefix != "" {
		input.Prefix = aws.String(fullPrefix)
	}
	if opts.ContinuationToken != "" {
		input.ContinuationToken = aws.String(opts.ContinuationToken)
	}

	result, err := c.api.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, itemstore.NewError("list", c.address.Bucket(), fullPrefix, err)
	}

	page := &itemstore.ListPage{
		Objects:     make([]itemstore.ObjectInfo, 0, len(result.Contents)),
		IsTruncated: aws.ToBool(result.IsTruncated),
	}
	for _, obj := range result.Contents {
		page.Objects = append(page.Objects, c.objectInfo(obj))
	}
	if page.IsTruncated {
		page.NextContinuationToken = aws.ToString(result.NextContinuationToken)
	}
	return page, nil
}

// walk calls fn with each listing page under the full key prefix, following
// continuation tokens until the listing is exhausted
func (c *S3Client) walk(ctx context.Context, fullPrefix string, fn func([]types.Object) error) error {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.address.Bucket()),
	}
	if fullPrefix != "" {
		input.Prefix = aws.String(fullPrefix)
	}

	paginator := s3.NewListObjectsV2Paginator(c.api, input, func(o *s3.ListObjectsV2PaginatorOptions) {
		o.Limit = c.pageSize
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}
		if err := fn(page.Contents); err != nil {
			return err
		}
	}
	return nil
}

func (c *S3Client) objectInfo(obj types.Object) itemstore.ObjectInfo {
	return itemstore.ObjectInfo{
		Key:          c.address.RelativeKey(aws.ToString(obj.Key)),
		Size:         aws.ToInt64(obj.Size),
		LastModified: aws.ToTime(obj.LastModified),
		ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
	}
}

func (c *S3Client) logDone(ctx context.Context, op, fullKey string, start time.Time, args ...any) {
	c.logger.DebugContext(ctx, "s3 "+op,
		append([]any{
			"bucket", c.address.Bucket(),
			"key", fullKey,
			"elapsed", flextime.Now().Sub(start),
		}, args...)...,
	)
}
