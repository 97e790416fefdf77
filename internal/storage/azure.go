package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureConfig holds the configuration for an Azure Blob Storage container.
// A connection string wins over the account URL; with only an account URL
// the credential is either the managed identity or DefaultAzureCredential.
type AzureConfig struct {
	AccountURL         string
	ConnectionString   string
	UseManagedIdentity bool
	Container          string
}

// azureAPI is the part of the Azure Blob client AzureStorage relies on.
type azureAPI interface {
	UploadBlob(ctx context.Context, container, blob string, data []byte) error
	DownloadBlob(ctx context.Context, container, blob string) ([]byte, error)
	BlobProperties(ctx context.Context, container, blob string) error
	ContainerProperties(ctx context.Context, container string) error
}

type azureClient struct {
	client *azblob.Client
}

func newAzureClient(cfg AzureConfig) (*azureClient, error) {
	if cfg.ConnectionString != "" {
		client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure client from connection string: %w", err)
		}
		return &azureClient{client: client}, nil
	}

	if cfg.AccountURL == "" {
		return nil, fmt.Errorf("azure account URL or connection string is required")
	}

	var (
		client *azblob.Client
		err    error
	)
	if cfg.UseManagedIdentity {
		cred, credErr := azidentity.NewManagedIdentityCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create Azure managed identity credential: %w", credErr)
		}
		client, err = azblob.NewClient(cfg.AccountURL, cred, nil)
	} else {
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", credErr)
		}
		client, err = azblob.NewClient(cfg.AccountURL, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}
	return &azureClient{client: client}, nil
}

func (c *azureClient) UploadBlob(ctx context.Context, container, blob string, data []byte) error {
	_, err := c.client.UploadBuffer(ctx, container, blob, data, nil)
	return err
}

func (c *azureClient) DownloadBlob(ctx context.Context, container, blob string) ([]byte, error) {
	resp, err := c.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *azureClient) BlobProperties(ctx context.Context, container, blob string) error {
	_, err := c.client.ServiceClient().NewContainerClient(container).NewBlobClient(blob).GetProperties(ctx, nil)
	return err
}

func (c *azureClient) ContainerProperties(ctx context.Context, container string) error {
	_, err := c.client.ServiceClient().NewContainerClient(container).GetProperties(ctx, nil)
	return err
}

// AzureStorage implements Storage on top of an Azure Blob Storage container.
type AzureStorage struct {
	client    azureAPI
	container string
}

func NewAzureStorage(cfg AzureConfig) (*AzureStorage, error) {
	client, err := newAzureClient(cfg)
	if err != nil {
		return nil, err
	}
	return &AzureStorage{client: client, container: cfg.Container}, nil
}

func newAzureStorageWithClient(container string, client azureAPI) *AzureStorage {
	return &AzureStorage{client: client, container: container}
}

func isAzureNotFound(err error) bool {
	return bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound)
}

func (s *AzureStorage) Put(ctx context.Context, key string, data []byte) error {
	if err := s.client.UploadBlob(ctx, s.container, key, data); err != nil {
		return fmt.Errorf("failed to upload blob: %w", err)
	}
	return nil
}

func (s *AzureStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.DownloadBlob(ctx, s.container, key)
	if err != nil {
		if isAzureNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}
	return data, nil
}

func (s *AzureStorage) Exists(ctx context.Context, key string) bool {
	return s.client.BlobProperties(ctx, s.container, key) == nil
}

func (s *AzureStorage) Ping(ctx context.Context) error {
	if err := s.client.ContainerProperties(ctx, s.container); err != nil {
		return fmt.Errorf("failed to ping Azure container: %w", err)
	}
	return nil
}
