package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"map-artifact-registry/config"
	"map-artifact-registry/registry"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"
)

// ErrIncompleteS3Config is returned when the S3 configuration is incomplete
var ErrIncompleteS3Config = errors.New("incomplete S3 configuration")

// S3Registry implements the registry interface using an s3-backed
// storage
type S3Registry struct {
	S3Client *s3.Client
	Timeout  time.Duration
	Bucket   string
}

// New creates a new s3-based registry. Without a static key pair the default
// AWS credential chain is used.
func New(ctx context.Context, cfg config.S3Config) (*S3Registry, error) {
	if strings.TrimSpace(cfg.Bucket) == "" ||
		strings.TrimSpace(cfg.Region) == "" ||
		strings.TrimSpace(cfg.Timeout) == "" {
		return nil, fmt.Errorf("%w: bucket, region and timeout are required", ErrIncompleteS3Config)
	}

	timeoutDuration, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid S3 timeout value: %w", err)
	}

	var s3Client *s3.Client
	if strings.TrimSpace(cfg.KeyID) != "" && strings.TrimSpace(cfg.AccessKey) != "" {
		if strings.TrimSpace(cfg.Endpoint) == "" {
			return nil, fmt.Errorf("%w: endpoint is required with static credentials", ErrIncompleteS3Config)
		}

		s3Client = s3.New(s3.Options{
			UsePathStyle: true,
			BaseEndpoint: aws.String(cfg.Endpoint),
			Region:       cfg.Region,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(cfg.KeyID, cfg.AccessKey, ""),
			),
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}

		s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
				o.UsePathStyle = true
			}
		})
	}

	return &S3Registry{
		S3Client: s3Client,
		Timeout:  timeoutDuration,
		Bucket:   cfg.Bucket,
	}, nil
}

// StoreArtifact uploads content under key. The upload is conditional on the
// key being absent.
func (r *S3Registry) StoreArtifact(
	ctx context.Context,
	key string,
	content []byte,
	contentType string,
) error {
	uploader := manager.NewUploader(r.S3Client)

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	result, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailure(err) {
			return registry.ErrArtifactExists
		}

		var mu manager.MultiUploadFailure
		if errors.As(err, &mu) {
			log.Error().
				Str("upload_id", mu.UploadID()).
				Err(mu).
				Msg("multi-upload failure")

			return fmt.Errorf(
				"multi-upload failure (upload_id: %s): %w",
				mu.UploadID(),
				mu,
			)
		}

		log.Error().Err(err).Str("key", key).Msg("upload failure")

		return fmt.Errorf("upload failure: %w", err)
	}
	log.Info().
		Str("location", result.Location).
		Msg("successfully uploaded artifact to s3 bucket")

	return nil
}

// GetArtifact retrieves an artifact by key
func (r *S3Registry) GetArtifact(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	object, err := r.S3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, registry.ErrArtifactNotFound
		}

		return nil, fmt.Errorf("failed to get artifact from S3: %w", err)
	}

	if object.Body == nil {
		return []byte{}, nil
	}
	defer func() {
		if cerr := object.Body.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("failed to close S3 object body")
		}
	}()

	content, err := io.ReadAll(object.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact content: %w", err)
	}

	return content, nil
}

// DeleteArtifact deletes an artifact by key
func (r *S3Registry) DeleteArtifact(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	// DeleteObject succeeds for absent keys, so check first
	_, err := r.S3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return registry.ErrArtifactNotFound
		}

		return fmt.Errorf("failed to inspect artifact in S3: %w", err)
	}

	_, err = r.S3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete artifact from S3: %w", err)
	}

	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound"
	}

	return false
}

func isPreconditionFailure(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	default:
		return false
	}
}
