package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/guttosm/idxpulse/config"
)

// BlobStore is the durability boundary of the pipeline: a flat key/value
// blob API over the exchange bucket. The pipeline keeps no persistent state
// anywhere else.
type BlobStore interface {
	// ListPaths returns every object key under prefix.
	ListPaths(ctx context.Context, prefix string) ([]string, error)
	// Exists reports whether an object is present at path.
	Exists(ctx context.Context, path string) (bool, error)
	// DownloadText fetches an object's content as a string.
	DownloadText(ctx context.Context, path string) (string, error)
	// UploadText stores text at path with the given content type.
	UploadText(ctx context.Context, path, text, contentType string) error
	// Ping verifies the bucket is reachable (readiness probe).
	Ping(ctx context.Context) error
}

// s3Store implements BlobStore against S3 or an S3-compatible endpoint
// (MinIO-style deployments use a custom endpoint with path-style addressing).
// Every remote call is wrapped in retry with exponential backoff; see
// retry.go for the retryable-error classification.
type s3Store struct {
	client *s3.Client
	bucket string
	retry  retryPolicy
}

// NewS3Store builds a BlobStore from the application store configuration.
//
// Behavior:
//   - Static credentials are used when provided; otherwise the SDK's
//     default credential chain applies.
//   - A custom endpoint switches the client to path-style addressing when
//     ForcePathStyle is set.
func NewS3Store(ctx context.Context, cfg config.StoreConfig, retryAttempts int) (BlobStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &s3Store{
		client: client,
		bucket: cfg.Bucket,
		retry:  newRetryPolicy(retryAttempts),
	}, nil
}

func (s *s3Store) ListPaths(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	err := s.retry.do(ctx, "list", func(ctx context.Context) error {
		paths = paths[:0]
		paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
			Bucket: aws.String(s.bucket),
			Prefix: aws.String(prefix),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return fmt.Errorf("list %s: %w", prefix, err)
			}
			for _, obj := range page.Contents {
				paths = append(paths, aws.ToString(obj.Key))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func (s *s3Store) Exists(ctx context.Context, path string) (bool, error) {
	var found bool
	err := s.retry.do(ctx, "exists", func(ctx context.Context) error {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(path),
		})
		if err != nil {
			if isNotFound(err) {
				found = false
				return nil
			}
			return fmt.Errorf("head %s: %w", path, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (s *s3Store) DownloadText(ctx context.Context, path string) (string, error) {
	var text string
	err := s.retry.do(ctx, "download", func(ctx context.Context) error {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(path),
		})
		if err != nil {
			return fmt.Errorf("get %s: %w", path, err)
		}
		defer func() { _ = out.Body.Close() }()

		b, err := io.ReadAll(out.Body)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		text = string(b)
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (s *s3Store) UploadText(ctx context.Context, path, text, contentType string) error {
	return s.retry.do(ctx, "upload", func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(path),
			Body:          strings.NewReader(text),
			ContentLength: aws.Int64(int64(len(text))),
			ContentType:   aws.String(contentType),
		})
		if err != nil {
			return fmt.Errorf("put %s: %w", path, err)
		}
		return nil
	})
}

func (s *s3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return nil
}

// isNotFound distinguishes a missing object from a real failure on HeadObject.
func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return true
	}
	return strings.Contains(err.Error(), "NotFound")
}
