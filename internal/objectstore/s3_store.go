package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dlops-io/mega-pipeline-aws/internal/core"
)

// Content types by artifact extension.
var contentTypes = map[string]string{
	".mp3": "audio/mpeg",
	".txt": "text/plain; charset=utf-8",
}

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps artifacts in an S3 bucket under <prefix>/<id><ext>.
type S3Store struct {
	client S3API
	bucket string
}

// NewS3Store creates an S3Store for bucket.
func NewS3Store(client S3API, bucket string) (*S3Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, ErrBucketName
	}

	return &S3Store{
		client: client,
		bucket: bucket,
	}, nil
}

// NewS3Client builds an S3 client from an AWS config. A non-empty endpoint
// targets an S3-compatible server with path-style addressing.
func NewS3Client(cfg aws.Config, endpoint string) *s3.Client {
	return s3.NewFromConfig(cfg, func(options *s3.Options) {
		if endpoint != "" {
			options.BaseEndpoint = aws.String(endpoint)
			options.UsePathStyle = true
		}
	})
}

// List returns the ids of all objects of kind, following pagination. Nested
// keys and "directory" placeholders are ignored.
func (s *S3Store) List(ctx context.Context, kind core.Kind) ([]string, error) {
	prefix := kind.Prefix + "/"

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var ids []string

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list 's3://%s/%s': %w", s.bucket, prefix, err)
		}

		for _, object := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(object.Key), prefix)

			id, ok := idFromName(name, kind.Ext)
			if ok {
				ids = append(ids, id)
			}
		}
	}

	return ids, nil
}

// Exists reports whether the object for id is present.
func (s *S3Store) Exists(ctx context.Context, kind core.Kind, id string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(kind.Key(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to head 's3://%s/%s': %w", s.bucket, kind.Key(id), err)
	}

	return true, nil
}

// Read downloads the object for id.
func (s *S3Store) Read(ctx context.Context, kind core.Kind, id string) ([]byte, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(kind.Key(id)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get 's3://%s/%s': %w", s.bucket, kind.Key(id), err)
	}

	data, readErr := io.ReadAll(output.Body)
	closeErr := output.Body.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read 's3://%s/%s': %w", s.bucket, kind.Key(id), readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close 's3://%s/%s': %w", s.bucket, kind.Key(id), closeErr)
	}

	return data, nil
}

// Write uploads data for id, replacing any existing object.
func (s *S3Store) Write(ctx context.Context, kind core.Kind, id string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(kind.Key(id)),
		Body:   bytes.NewReader(data),
	}

	if contentType, ok := contentTypes[kind.Ext]; ok {
		input.ContentType = aws.String(contentType)
	}

	_, err := s.client.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to put 's3://%s/%s': %w", s.bucket, kind.Key(id), err)
	}

	return nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}

	var noSuchKey *types.NoSuchKey

	return errors.As(err, &noSuchKey)
}
