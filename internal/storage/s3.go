// Package storage keeps image bytes in an S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// ErrEmptyKey is returned when an operation is given no object key.
var ErrEmptyKey = errors.New("empty object key")

// Config holds the object store connection settings.
type Config struct {
	Bucket        string
	Region        string
	Endpoint      string // Empty means AWS
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	UsePathStyle  bool
}

// ObjectAPI is the subset of the S3 client used by S3Store.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// seams for tests
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

// S3Store stores objects in a single bucket.
type S3Store struct {
	client  ObjectAPI
	bucket  string
	baseURL string
}

// NewS3Store builds an S3 client from cfg.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3StoreWithClient(client, cfg), nil
}

// NewS3StoreWithClient wraps an existing client.
func NewS3StoreWithClient(client ObjectAPI, cfg Config) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicBaseURL(cfg),
	}
}

// Put uploads body under key and returns the public URL of the object.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return s.URL(key), nil
}

// Delete removes the object stored under key. A key that is already gone
// counts as deleted.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("delete object %s: %w", key, err)
	}

	return nil
}

// Ping checks that the bucket is reachable.
func (s *S3Store) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return nil
}

// URL returns the public URL of key.
func (s *S3Store) URL(key string) string {
	return s.baseURL + "/" + escapeKey(key)
}

// ObjectKey builds the storage key for a new image:
// images/<owner>/<yyyy>/<mm>/<uuid>.<ext>
func ObjectKey(ownerID, ext string, now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("images/%s/%04d/%02d/%s.%s", ownerID, now.Year(), int(now.Month()), uuid.NewString(), ext)
}

func publicBaseURL(cfg Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimSuffix(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
