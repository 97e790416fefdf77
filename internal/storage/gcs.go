package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSConfig holds the configuration for a Google Cloud Storage bucket.
// Without a credentials file, Application Default Credentials are used.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
}

// gcsAPI is the part of the GCS client GCSStorage relies on.
type gcsAPI interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
	Attrs(ctx context.Context, bucket, object string) error
	BucketAttrs(ctx context.Context, bucket string) error
}

type gcsClient struct {
	client *gcs.Client
}

func (c *gcsClient) Write(ctx context.Context, bucket, object string, data []byte) error {
	w := c.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (c *gcsClient) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	r, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (c *gcsClient) Attrs(ctx context.Context, bucket, object string) error {
	_, err := c.client.Bucket(bucket).Object(object).Attrs(ctx)
	return err
}

func (c *gcsClient) BucketAttrs(ctx context.Context, bucket string) error {
	_, err := c.client.Bucket(bucket).Attrs(ctx)
	return err
}

// GCSStorage implements Storage on top of a Google Cloud Storage bucket.
type GCSStorage struct {
	client gcsAPI
	bucket string
}

// NewGCSStorage creates the GCS client. No request is made to the bucket here.
func NewGCSStorage(ctx context.Context, cfg GCSConfig) (*GCSStorage, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client: &gcsClient{client: client},
		bucket: cfg.Bucket,
	}, nil
}

func newGCSStorageWithClient(bucket string, client gcsAPI) *GCSStorage {
	return &GCSStorage{client: client, bucket: bucket}
}

func (s *GCSStorage) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.Write(ctx, s.bucket, key, data); err != nil {
		return fmt.Errorf("failed to write GCS object: %w", err)
	}
	return nil
}

func (s *GCSStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Read(ctx, s.bucket, key)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read GCS object: %w", err)
	}
	return data, nil
}

func (s *GCSStorage) Exists(ctx context.Context, key string) bool {
	return s.client.Attrs(ctx, s.bucket, key) == nil
}

func (s *GCSStorage) Ping(ctx context.Context) error {
	if err := s.client.BucketAttrs(ctx, s.bucket); err != nil {
		return fmt.Errorf("failed to ping GCS: %w", err)
	}
	return nil
}
