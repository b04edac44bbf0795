// Package minioRegistry stores artifacts in a MinIO bucket.
package minioRegistry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"map-artifact-registry/config"
	"map-artifact-registry/registry"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

var ErrIncompleteMinIOConfig = errors.New("incomplete MinIO configuration")

const codeNoSuchKey = "NoSuchKey"

type MinIORegistry struct {
	client *minio.Client
	bucket string
}

// New connects to MinIO and creates the bucket when it is missing.
func New(ctx context.Context, cfg config.MinIOConfig) (*MinIORegistry, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: endpoint and bucket are required", ErrIncompleteMinIOConfig)
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: access_key and secret_key are required", ErrIncompleteMinIOConfig)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	r := &MinIORegistry{client: client, bucket: cfg.Bucket}
	if err := r.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *MinIORegistry) EnsureBucket(ctx context.Context) error {
	exists, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		log.Info().Str("bucket", r.bucket).Msg("Created MinIO bucket")
	}

	return nil
}

// StoreArtifact refuses keys that already exist. The existence check and the
// write are not atomic; keys carry a millisecond token so races are unlikely.
func (r *MinIORegistry) StoreArtifact(
	ctx context.Context,
	key string,
	content []byte,
	contentType string,
) error {
	exists, err := r.exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return registry.ErrArtifactExists
	}

	_, err = r.client.PutObject(
		ctx,
		r.bucket,
		key,
		bytes.NewReader(content),
		int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	return nil
}

func (r *MinIORegistry) GetArtifact(ctx context.Context, key string) ([]byte, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	defer func() {
		if cerr := obj.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("failed to close MinIO object")
		}
	}()

	// GetObject is lazy, errors surface on first read
	content, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == codeNoSuchKey {
			return nil, registry.ErrArtifactNotFound
		}

		return nil, fmt.Errorf("download %s: %w", key, err)
	}

	return content, nil
}

// DeleteArtifact removes key. RemoveObject succeeds for absent keys, so
// existence is checked first.
func (r *MinIORegistry) DeleteArtifact(ctx context.Context, key string) error {
	exists, err := r.exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return registry.ErrArtifactNotFound
	}

	if err := r.client.RemoveObject(ctx, r.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	return nil
}

func (r *MinIORegistry) exists(ctx context.Context, key string) (bool, error) {
	_, err := r.client.StatObject(ctx, r.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == codeNoSuchKey {
			return false, nil
		}

		return false, fmt.Errorf("stat %s: %w", key, err)
	}

	return true, nil
}
