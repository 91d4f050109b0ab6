// Package storage publishes build artifacts to object storage.
package storage

import (
	"context"
	"io"

	"github.com/trace-callgraph/pkg/config"
	apperrors "github.com/trace-callgraph/pkg/errors"
)

// Storage defines the object storage operations artifacts need.
type Storage interface {
	// Upload stores the content of reader under key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// UploadFile stores a local file under key.
	UploadFile(ctx context.Context, key string, localPath string) error

	// Download opens the object stored under key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object under key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns where the object under key can be fetched from.
	GetURL(key string) string
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeCOS   StorageType = "cos"
)

// NewStorage creates a new Storage instance based on the configuration.
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	if StorageType(cfg.Type) == StorageTypeCOS {
		return NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	}
	return NewLocalStorage(cfg.LocalPath)
}

// ValidateConfig validates the storage configuration. An empty type means
// local storage.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return apperrors.New(apperrors.CodeConfigError, "storage config is nil")
	}

	switch StorageType(cfg.Type) {
	case "", StorageTypeLocal:
		if cfg.LocalPath == "" {
			return apperrors.New(apperrors.CodeConfigError, "local storage path is required")
		}
	case StorageTypeCOS:
		if cfg.Bucket == "" || cfg.Region == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS bucket and region are required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS credentials are required")
		}
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported storage type: %s", cfg.Type)
	}

	return nil
}

func storageError(message string, err error) error {
	return apperrors.Wrap(apperrors.CodeStorageError, message, err)
}
