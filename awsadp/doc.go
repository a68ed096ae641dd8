// Package awsadp provides the AWS S3 implementation of itemstore.Client.
//
// S3Client: implements itemstore.Client against a bucket and optional key prefix
// taken from an s3://bucket[/key-prefix] address.
//
// The client works with any S3-compatible service. Set S3ClientConfig.Endpoint
// and UsePathStyle for minio in local development.
package awsadp
