package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// R2Store implements ObjectStore against any S3-compatible endpoint
// (Cloudflare R2 in production, MinIO locally).
type R2Store struct {
	client *minio.Client
	bucket string
}

// NewR2Store connects to the object-store endpoint and makes sure the
// bucket exists.
func NewR2Store(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*R2Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object store: connect %q: %w", endpoint, err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("object store: check bucket %q: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("object store: create bucket %q: %w", bucket, err)
		}
	}

	return &R2Store{client: client, bucket: bucket}, nil
}

// Put uploads data under the given path, overwriting any previous object.
func (s *R2Store) Put(ctx context.Context, path string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, path,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("object store: put %q: %w", path, err)
	}
	return nil
}
