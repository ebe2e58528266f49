package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"backend/internal/errors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArtifactStore puts and retrieves the signed XML and RIDE PDF byte streams
// an issued invoice produces, addressed by a caller-chosen bucket and key.
type ArtifactStore struct {
	client        *minio.Client
	ensuredBucket map[string]bool
}

// NewArtifactStore dials the configured MinIO (or S3-compatible) endpoint.
// It does not create any bucket eagerly; Put auto-creates its target bucket
// on first use.
func NewArtifactStore(endpoint, accessKey, secretKey string, useSSL bool) (*ArtifactStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal)
	}
	return &ArtifactStore{client: client, ensuredBucket: map[string]bool{}}, nil
}

// Put uploads data under bucket/key with the given content type, creating
// the bucket first if it does not already exist, and returns the canonical
// "<bucket>/<key>" path used as the persisted storage reference.
func (s *ArtifactStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	if err := s.ensureBucket(ctx, bucket); err != nil {
		return "", err
	}

	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrArtifactStoreUnavailable)
	}
	return fmt.Sprintf("%s/%s", bucket, key), nil
}

// Get streams the object at bucket/key back to the caller. Callers must
// Close the returned reader.
func (s *ArtifactStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrArtifactStoreUnavailable)
	}
	// GetObject is lazy: force a Stat to surface a not-found error now
	// rather than on the caller's first Read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, errors.ErrArtifactNotFound.WithMessage(fmt.Sprintf("%s/%s: %v", bucket, key, err))
	}
	return obj, nil
}

// Delete removes the object at bucket/key. Deleting a missing object is not
// an error, matching the idempotent-delete convention the settlement
// worker's cleanup path relies on.
func (s *ArtifactStore) Delete(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrArtifactStoreUnavailable)
	}
	return nil
}

// Presign returns a time-limited, unauthenticated GET URL for bucket/key,
// used by the public XML/PDF download endpoints.
func (s *ArtifactStore) Presign(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrArtifactStoreUnavailable)
	}
	return u.String(), nil
}

// splitArtifactPath reverses the canonical "<bucket>/<key>" path Put
// returns, for callers (issuance cleanup, settlement worker re-fetch) that
// only persisted the combined path.
func splitArtifactPath(path string) (bucket, key string, ok bool) {
	bucket, key, ok = strings.Cut(path, "/")
	return bucket, key, ok
}

func (s *ArtifactStore) ensureBucket(ctx context.Context, bucket string) error {
	if s.ensuredBucket[bucket] {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrArtifactStoreUnavailable)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return errors.Wrap(err, errors.ErrArtifactStoreUnavailable)
		}
	}
	s.ensuredBucket[bucket] = true
	return nil
}
