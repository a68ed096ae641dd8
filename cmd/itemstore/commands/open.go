package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/mashiike/itemstore"
	"github.com/mashiike/itemstore/awsadp"
	"github.com/spf13/viper"
)

// openClient opens the backend an address names: s3:// addresses go to S3,
// anything else is treated as a local directory.
//
// Static credentials are read from ITEMSTORE_ACCESS_KEY_ID and
// ITEMSTORE_SECRET_ACCESS_KEY; without them the AWS credential chain is used.
func openClient(ctx context.Context, v *viper.Viper, address string) (itemstore.Client, error) {
	if !strings.HasPrefix(address, itemstore.S3Scheme) {
		client, err := itemstore.NewFileSystemClient(itemstore.FileSystemClientConfig{
			BasePath: address,
			Logger:   slog.Default(),
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	var creds aws.CredentialsProvider
	if id, secret := v.GetString("access-key-id"), v.GetString("secret-access-key"); id != "" && secret != "" {
		creds = credentials.NewStaticCredentialsProvider(id, secret, v.GetString("session-token"))
	}
	client, err := awsadp.NewS3Client(ctx, awsadp.S3ClientConfig{
		Address:      address,
		Region:       v.GetString("region"),
		Endpoint:     v.GetString("endpoint"),
		UsePathStyle: v.GetBool("path-style"),
		Credentials:  creds,
		Logger:       slog.Default(),
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
