package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

const noSuchKey = "NoSuchKey"

// MinIOStore keeps blobs as objects in a single MinIO bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// NewMinIOStore constructs an adapter over an existing bucket.
func NewMinIOStore(client *minio.Client, bucket string) *MinIOStore {
	return &MinIOStore{client: client, bucket: bucket}
}

// Put uploads r as a new object. Objects are never overwritten; the existence
// check and the upload are two requests, so uniqueness of name is the caller's job.
func (s *MinIOStore) Put(ctx context.Context, name string, r io.Reader, contentType string) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}

	if _, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err == nil {
		return 0, ErrExists
	} else if minio.ToErrorResponse(err).Code != noSuchKey {
		return 0, fmt.Errorf("stat object %s: %w", name, err)
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := s.client.PutObject(ctx, s.bucket, name, contextReader{ctx: ctx, r: r}, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, fmt.Errorf("put object %s: %w", name, err)
	}
	return info.Size, nil
}

// Open fetches object metadata first so a missing object is reported before any bytes.
func (s *MinIOStore) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	if err := ValidateName(name); err != nil {
		return nil, 0, ErrNotFound
	}

	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("get object %s: %w", name, err)
	}

	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == noSuchKey {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("stat object %s: %w", name, err)
	}

	return obj, info.Size, nil
}

// Remove deletes an object. MinIO treats a missing key as success.
func (s *MinIOStore) Remove(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", name, err)
	}
	return nil
}

// Ping verifies the bucket is reachable.
func (s *MinIOStore) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}
