package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"aws-gateway/internal/config"
)

// S3Store is an ObjectStore backed by a single Amazon S3 bucket.
type S3Store struct {
	api    s3iface.S3API
	bucket string
	logger *slog.Logger
}

// NewS3Store creates an S3Store for the configured bucket and region.
// A custom endpoint and path-style addressing allow S3-compatible services.
func NewS3Store(cfg *config.Config, logger *slog.Logger) (*S3Store, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Storage.Region)
	if cfg.Storage.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Storage.Endpoint)
	}
	if cfg.Storage.ForcePathStyle {
		awsCfg = awsCfg.WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("s3 session: %w", err)
	}

	return NewS3StoreWithAPI(s3.New(sess), cfg.Storage.Bucket, logger), nil
}

// NewS3StoreWithAPI creates an S3Store around an existing S3 client.
func NewS3StoreWithAPI(api s3iface.S3API, bucket string, logger *slog.Logger) *S3Store {
	return &S3Store{
		api:    api,
		bucket: bucket,
		logger: logger.With("component", "s3_store", "bucket", bucket),
	}
}

// Put uploads obj, overwriting any object already stored under obj.Key.
func (s *S3Store) Put(ctx context.Context, obj *Object) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(obj.Key),
		Body:          bytes.NewReader(obj.Body),
		ContentLength: aws.Int64(int64(len(obj.Body))),
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}
	if obj.CacheControl != "" {
		input.CacheControl = aws.String(obj.CacheControl)
	}

	if _, err := s.api.PutObjectWithContext(ctx, input); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, obj.Key, err)
	}

	s.logger.Debug("object stored", "key", obj.Key, "bytes", len(obj.Body))
	return nil
}
