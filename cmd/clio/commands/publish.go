package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cliosearch/clio/archive"
	"github.com/cliosearch/clio/blobstore"
	minioblob "github.com/cliosearch/clio/blobstore/minio"
	s3blob "github.com/cliosearch/clio/blobstore/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/urfave/cli/v3"
)

// PublishAction uploads an archive to object storage under a versioned key.
// Against AWS with a commit table, the CURRENT pointer is flipped atomically
// through DynamoDB so readers always resolve a complete archive.
func PublishAction(ctx context.Context, cmd *cli.Command) error {
	loadEnv(cmd.String("env"))
	logger := newLogger()

	path := cmd.String("archive")
	bucket := cmd.String("bucket")
	prefix := cmd.String("prefix")
	endpoint := cmd.String("endpoint")
	commitTable := cmd.String("commit-table")

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Refuse to publish anything that does not decode cleanly.
	if _, err := archive.Decode(data); err != nil {
		return fmt.Errorf("refusing to publish %s: %w", path, err)
	}

	key := versionedKey(path)

	var store blobstore.WritableBlobStore
	var commit *s3blob.CommitStore

	if endpoint != "" {
		if commitTable != "" {
			return fmt.Errorf("--commit-table requires AWS; MinIO endpoints publish without a commit log")
		}
		client, err := minio.New(endpoint, &minio.Options{
			Creds:  credentials.NewEnvMinio(),
			Secure: true,
		})
		if err != nil {
			return err
		}
		store = minioblob.NewStore(client, bucket, prefix)
	} else {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return err
		}
		s3Store := s3blob.NewStore(awss3.NewFromConfig(cfg), bucket, prefix)
		store = s3Store

		if commitTable != "" {
			baseURI := fmt.Sprintf("s3://%s/%s", bucket, prefix)
			commit = s3blob.NewCommitStore(s3Store, dynamodb.NewFromConfig(cfg), commitTable, baseURI)
		}
	}

	if err := store.Put(ctx, key, data); err != nil {
		return err
	}
	logger.InfoContext(ctx, "archive uploaded",
		"bucket", bucket,
		"key", key,
		"bytes", len(data),
	)

	if commit != nil {
		if err := commit.Put(ctx, "CURRENT", []byte(key)); err != nil {
			return err
		}
		logger.InfoContext(ctx, "CURRENT pointer committed", "key", key)
	}

	fmt.Printf("published %s\n", key)
	return nil
}

// versionedKey derives an object key from the archive filename plus a UTC
// timestamp, so successive publishes never overwrite each other.
func versionedKey(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	return fmt.Sprintf("%s-%s%s", stem, time.Now().UTC().Format("20060102T150405Z"), ext)
}
