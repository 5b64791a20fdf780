package storage

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// AzureStore implements Store on an Azure Blob Storage container.
type AzureStore struct {
	container *container.Client
}

// NewAzureStore connects with a storage-account connection string and makes
// sure the container exists with anonymous blob-level read access.
func NewAzureStore(ctx context.Context, connectionString, containerName string) (*AzureStore, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure blob client: %w", err)
	}

	access := container.PublicAccessTypeBlob
	_, err = client.CreateContainer(ctx, containerName, &azblob.CreateContainerOptions{Access: &access})
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("create container %q: %w", containerName, err)
	}

	return &AzureStore{
		container: client.ServiceClient().NewContainerClient(containerName),
	}, nil
}

func (s *AzureStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.container.NewBlockBlobClient(key).UploadBuffer(ctx, data, &blockblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("upload block blob: %w", err)
	}
	return nil
}

func (s *AzureStore) Remove(ctx context.Context, key string) error {
	_, err := s.container.NewBlobClient(key).Delete(ctx, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// BaseURL returns the container URL, e.g. https://<account>.blob.core.windows.net/<container>.
func (s *AzureStore) BaseURL() string { return s.container.URL() }
