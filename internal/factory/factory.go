package factory

import (
	"fmt"

	"github.com/x-xaie/cloud-IR/internal/config"
	"github.com/x-xaie/cloud-IR/internal/repository"
	"github.com/x-xaie/cloud-IR/internal/storage"
)

// NewResultRepository selects the repository backend from configuration.
func NewResultRepository(cfg *config.Config) (repository.ResultRepository, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return repository.NewMemoryResultRepository(), nil
	case config.BackendTable:
		return repository.NewTableResultRepository(cfg.StorageAccount, cfg.StorageKey, cfg.ResultsTable)
	default:
		return nil, fmt.Errorf("unknown repository backend: %q", cfg.Backend)
	}
}

// NewBlobStore selects the upload store matching the repository backend:
// the memory backend runs fully offline, the table backend uses Azure.
func NewBlobStore(cfg *config.Config) (storage.BlobUploader, error) {
	if cfg.Backend == config.BackendMemory {
		return storage.NewMemoryBlobStore(), nil
	}
	return storage.NewAzureBlobStore(cfg.StorageAccount, cfg.StorageKey, cfg.UploadContainer)
}
