package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("artifact not found")
)

// Storage defines the interface for artifact storage backends.
// A single instance is built at startup and shared by every request,
// so implementations must be safe for concurrent use.
type Storage interface {
	// Put stores data under key, overwriting any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the data stored under key.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether key is present. Backend errors are
	// reported as false, so a transient failure looks like a miss.
	Exists(ctx context.Context, key string) bool

	// Ping checks if the storage backend is reachable.
	Ping(ctx context.Context) error
}

// Provider names one of the supported storage backends.
type Provider string

const (
	ProviderMemory Provider = "memory"
	ProviderFile   Provider = "file"
	ProviderS3     Provider = "s3"
	ProviderGCS    Provider = "gcs"
	ProviderAzure  Provider = "azure"
)

// Providers lists every provider accepted by ParseProvider.
var Providers = []Provider{ProviderMemory, ProviderFile, ProviderS3, ProviderGCS, ProviderAzure}

// ParseProvider converts a configuration value into a Provider.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid storage provider %q", name)
}

// Options carries everything New needs to build any of the backends.
type Options struct {
	Provider    Provider
	Bucket      string
	FSCachePath string
	S3          S3Config
	GCS         GCSConfig
	Azure       AzureConfig
}

// New builds the backend selected by opts.Provider. Errors are meant to be
// fatal: the caller should refuse to start rather than serve requests.
func New(ctx context.Context, opts Options) (Storage, error) {
	switch opts.Provider {
	case ProviderMemory:
		return NewMemoryStorage(), nil
	case ProviderFile:
		return NewFileStorage(opts.FSCachePath, opts.Bucket)
	case ProviderS3:
		cfg := opts.S3
		cfg.Bucket = opts.Bucket
		return NewS3Storage(cfg)
	case ProviderGCS:
		cfg := opts.GCS
		cfg.Bucket = opts.Bucket
		return NewGCSStorage(ctx, cfg)
	case ProviderAzure:
		cfg := opts.Azure
		cfg.Container = opts.Bucket
		return NewAzureStorage(cfg)
	default:
		return nil, fmt.Errorf("invalid storage provider %q", opts.Provider)
	}
}
