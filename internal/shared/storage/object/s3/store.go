package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"visioncloud-backend/internal/shared/storage/object"
)

// API is the subset of the S3 client the store uses.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store implements ObjectStore using Amazon S3.
type Store struct {
	client    API
	bucket    string
	prefix    string
	publicURL string
}

// New creates a new S3-backed object store. publicURL overrides the default
// virtual-hosted bucket URL (for a CDN or custom domain).
func New(ctx context.Context, region, bucket, prefix, publicURL string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	if strings.TrimSpace(publicURL) == "" {
		publicURL = defaultPublicURL(bucket, cfg.Region)
	}
	return NewWithClient(s3.NewFromConfig(cfg), bucket, prefix, publicURL), nil
}

// NewWithClient builds a store around an existing client.
func NewWithClient(client API, bucket, prefix, publicURL string) *Store {
	return &Store{
		client:    client,
		bucket:    bucket,
		prefix:    normalizePrefix(prefix),
		publicURL: strings.TrimSpace(publicURL),
	}
}

// Put uploads the reader contents to S3 at key.
func (s *Store) Put(ctx context.Context, key string, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := object.CleanKey(key)
	if err != nil {
		return "", err
	}
	objectKey := applyPrefix(s.prefix, clean)

	input := &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(objectKey),
		Body:                 r,
		ContentType:          aws.String(contentType),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return s.URL(clean), nil
}

// Open downloads a stored object for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	objectKey := applyPrefix(s.prefix, key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return out.Body, nil
}

// Delete removes the object at key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	objectKey := applyPrefix(s.prefix, key)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return nil
}

// URL returns the public URL of key.
func (s *Store) URL(key string) string {
	return object.JoinURL(s.publicURL, applyPrefix(s.prefix, key))
}

func defaultPublicURL(bucket, region string) string {
	if region == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

var _ object.ObjectStore = (*Store)(nil)
