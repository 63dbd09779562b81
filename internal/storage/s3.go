// Package storage provides the temporary object store used for platforms
// that require a publicly retrievable image URL instead of inline bytes.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dealwire/social-engine/internal/config"
)

// ObjectStore uploads flyer bytes and returns a public URL, and deletes
// objects after a successful publish. Failed publishes retain their object
// for diagnosis.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// S3Store is the S3-backed ObjectStore.
type S3Store struct {
	bucket        string
	prefix        string
	publicBaseURL string
	client        *s3.Client
	uploader      *manager.Uploader
}

// NewS3Store creates an S3Store. Region and credentials come from the
// standard AWS environment (AWS_REGION, AWS_PROFILE, key pair, etc.).
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)

	return &S3Store{
		bucket:        cfg.Bucket,
		prefix:        cfg.Prefix,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		client:        client,
		uploader:      manager.NewUploader(client),
	}, nil
}

// Upload stores PNG bytes under the configured prefix and returns the
// object's public URL.
func (s *S3Store) Upload(ctx context.Context, key string, data []byte) (string, error) {
	objectKey := path.Join(s.prefix, key)

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}

	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.publicBaseURL, objectKey), nil
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, objectKey), nil
}

// Delete removes a temporary object.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	objectKey := path.Join(s.prefix, key)

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}
