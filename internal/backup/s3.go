// Package backup copies the reading list to S3 after each save.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ObjectName is the key, under the configured prefix, of the backup copy.
const ObjectName = "reading_list.csv"

// Config selects the bucket and how to reach it. Empty fields fall back to
// the standard AWS config chain.
type Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Profile      string
	UsePathStyle bool
}

// putObjectAPI is the slice of the S3 client the backup needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Backup uploads store snapshots.
type S3Backup struct {
	client putObjectAPI
	bucket string
	key    string
	logger *slog.Logger
}

// NewS3Backup loads the AWS configuration and creates an S3Backup.
func NewS3Backup(ctx context.Context, cfg Config, logger *slog.Logger) (*S3Backup, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("backup bucket is empty")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Backup(client, cfg, logger), nil
}

func newS3Backup(client putObjectAPI, cfg Config, logger *slog.Logger) *S3Backup {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Backup{
		client: client,
		bucket: cfg.Bucket,
		key:    Key(cfg.Prefix),
		logger: logger.With("component", "backup.s3"),
	}
}

// Key joins prefix and ObjectName.
func Key(prefix string) string {
	if prefix == "" {
		return ObjectName
	}
	return path.Join(prefix, ObjectName)
}

// Upload stores data as the current backup.
func (b *S3Backup) Upload(ctx context.Context, data []byte) error {
	start := time.Now()
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("uploading s3://%s/%s (%s): %w", b.bucket, b.key, apiErr.ErrorCode(), err)
		}
		return fmt.Errorf("uploading s3://%s/%s: %w", b.bucket, b.key, err)
	}

	b.logger.InfoContext(ctx, "Reading list backed up",
		"bucket", b.bucket,
		"key", b.key,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
