package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the configuration for an S3 (or S3-compatible) bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// s3API is the part of the MinIO client S3Storage relies on.
type s3API interface {
	PutObject(ctx context.Context, bucket, key string, data []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	StatObject(ctx context.Context, bucket, key string) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

type minioClient struct {
	client *minio.Client
}

func (c *minioClient) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	_, err := c.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	return err
}

func (c *minioClient) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

func (c *minioClient) StatObject(ctx context.Context, bucket, key string) error {
	_, err := c.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	return err
}

func (c *minioClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return c.client.BucketExists(ctx, bucket)
}

// S3Storage implements Storage on top of an S3 bucket using the MinIO client.
type S3Storage struct {
	client s3API
	bucket string
}

// NewS3Storage creates a new S3 storage instance. Static keys are used when
// both are set; otherwise credentials come from the environment, the shared
// AWS credentials file or the instance role, in that order.
func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	creds := credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{
				Client: &http.Client{Transport: http.DefaultTransport},
			},
		})
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &S3Storage{
		client: &minioClient{client: client},
		bucket: cfg.Bucket,
	}, nil
}

func newS3StorageWithClient(bucket string, client s3API) *S3Storage {
	return &S3Storage{client: client, bucket: bucket}
}

func isS3NotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// Put stores an artifact in S3.
func (s *S3Storage) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.PutObject(ctx, s.bucket, key, data); err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// Get retrieves an artifact from S3.
func (s *S3Storage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.GetObject(ctx, s.bucket, key)
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return data, nil
}

// Exists checks if an artifact exists in S3.
func (s *S3Storage) Exists(ctx context.Context, key string) bool {
	return s.client.StatObject(ctx, s.bucket, key) == nil
}

// Ping checks if the bucket is reachable.
func (s *S3Storage) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to ping S3: %w", err)
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}
