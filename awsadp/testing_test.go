package awsadp

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// TestingConfig provides configuration for testing with minio
type TestingConfig struct {
	Endpoint        string // e.g., "http://localhost:9000"
	AccessKeyID     string // e.g., "minioadmin"
	SecretAccessKey string // e.g., "minioadmin"
	Bucket          string // e.g., "itemstore-test"
	Region          string // e.g., "us-east-1" (minio default)
}

// DefaultTestingConfig returns configuration for local minio testing.
// The second result is false when MINIO_ENDPOINT is unset.
func DefaultTestingConfig() (TestingConfig, bool) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	return TestingConfig{
		Endpoint:        endpoint,
		AccessKeyID:     getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		SecretAccessKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		Bucket:          getEnv("MINIO_BUCKET", "itemstore-test"),
		Region:          getEnv("MINIO_REGION", "us-east-1"),
	}, endpoint != ""
}

func requireMinio(t *testing.T) TestingConfig {
	t.Helper()
	cfg, ok := DefaultTestingConfig()
	if !ok {
		t.Skip("MINIO_ENDPOINT is not set")
	}
	return cfg
}

// NewS3ClientForTesting creates an S3Client on a fresh random prefix of the
// test bucket and removes everything under it when the test ends
func NewS3ClientForTesting(t *testing.T, cfg TestingConfig, bucket string) *S3Client {
	t.Helper()
	ctx := context.Background()

	address := fmt.Sprintf("s3://%s/test-%s", bucket, uuid.Must(uuid.NewV7()).String())
	client, err := NewS3Client(ctx, S3ClientConfig{
		Address:      address,
		Region:       cfg.Region,
		Endpoint:     cfg.Endpoint,
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		PageSize:     2,
	})
	if err != nil {
		t.Fatalf("Failed to create S3Client: %v", err)
	}
	if err := EnsureBucketExists(ctx, client.api, bucket); err != nil {
		t.Fatalf("Failed to ensure bucket exists: %v", err)
	}

	t.Cleanup(func() {
		if err := client.DeleteFolder(ctx, ""); err != nil {
			t.Logf("Warning: Failed to cleanup test objects: %v", err)
		}
	})
	return client
}

// EnsureBucketExists creates the test bucket if it doesn't exist
func EnsureBucketExists(ctx context.Context, api S3API, bucket string) error {
	client, ok := api.(*s3.Client)
	if !ok {
		return fmt.Errorf("bucket management needs *s3.Client, got %T", api)
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	}); err == nil {
		return nil
	}

	_, err := client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
