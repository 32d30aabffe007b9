package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/sirupsen/logrus"

	"github.com/x-xaie/cloud-IR/internal/logger"
	"github.com/x-xaie/cloud-IR/pkg/models"
)

// BlobUploader stores raw image bytes and returns a URL the analysis
// pipeline can hand to the vision provider.
type BlobUploader interface {
	EnsureContainer(ctx context.Context) error
	Upload(ctx context.Context, blobName string, data []byte, meta *models.UploadMetadata) (string, error)
}

type azureBlobStore struct {
	client    *azblob.Client
	account   string
	container string
}

// NewAzureBlobStore creates a blob uploader backed by Azure Blob
// storage. The client is shared across requests.
func NewAzureBlobStore(accountName, accountKey, container string) (BlobUploader, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid blob storage credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &azureBlobStore{client: client, account: accountName, container: container}, nil
}

// EnsureContainer creates the upload container if absent.
func (s *azureBlobStore) EnsureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err == nil {
		return nil
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.ErrorCode == "ContainerAlreadyExists" {
		return nil
	}

	logger.WithError(err).WithField("container", s.container).Error("Failed to provision upload container")
	return fmt.Errorf("container provisioning failed: %w", err)
}

// Upload writes the blob with the upload metadata attached as blob
// metadata and returns its HTTPS URL.
func (s *azureBlobStore) Upload(ctx context.Context, blobName string, data []byte, meta *models.UploadMetadata) (string, error) {
	options := &azblob.UploadBufferOptions{}
	if meta != nil {
		options.Metadata = map[string]*string{
			"originalname": &meta.OriginalName,
			"dimensions":   &meta.Dimensions,
			"format":       &meta.Format,
		}
	}

	if _, err := s.client.UploadBuffer(ctx, s.container, blobName, data, options); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"container": s.container,
			"blob":      blobName,
		}).Error("Blob upload failed")
		return "", fmt.Errorf("upload failed: %w", err)
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", s.account, s.container, blobName), nil
}

// MemoryBlobStore keeps uploads in memory. Used for local runs without
// cloud credentials and in tests.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBlobStore creates an empty in-memory uploader.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

func (s *MemoryBlobStore) EnsureContainer(ctx context.Context) error { return nil }

func (s *MemoryBlobStore) Upload(ctx context.Context, blobName string, data []byte, meta *models.UploadMetadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]byte, len(data))
	copy(copied, data)
	s.blobs[blobName] = copied
	return "memory://uploads/" + blobName, nil
}

// Get returns stored blob bytes, for tests.
func (s *MemoryBlobStore) Get(blobName string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[blobName]
	return data, ok
}
