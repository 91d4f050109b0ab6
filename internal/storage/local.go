package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/trace-callgraph/pkg/errors"
)

// LocalStorage implements Storage on the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if basePath == "" {
		basePath = "./storage"
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, storageError("failed to create storage directory", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Upload implements Storage.
func (s *LocalStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CodeCancelled, "upload cancelled", err)
	}

	fullPath := s.getFullPath(key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return storageError("failed to create directory", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return storageError("failed to create file", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return storageError("failed to write file", err)
	}
	return nil
}

// UploadFile implements Storage.
func (s *LocalStorage) UploadFile(ctx context.Context, key string, localPath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return storageError("failed to open source file", err)
	}
	defer src.Close()

	return s.Upload(ctx, key, src)
}

// Download implements Storage.
func (s *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeCancelled, "download cancelled", err)
	}

	file, err := os.Open(s.getFullPath(key))
	if os.IsNotExist(err) {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "object not found: %s", key)
	}
	if err != nil {
		return nil, storageError("failed to open file", err)
	}
	return file, nil
}

// Delete implements Storage.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.getFullPath(key)); err != nil && !os.IsNotExist(err) {
		return storageError("failed to delete file", err)
	}
	return nil
}

// Exists implements Storage.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.getFullPath(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, storageError("failed to check file existence", err)
	}
	return true, nil
}

// GetURL returns the file path for local storage.
func (s *LocalStorage) GetURL(key string) string {
	return s.getFullPath(key)
}

// GetBasePath returns the base path for the local storage.
func (s *LocalStorage) GetBasePath() string {
	return s.basePath
}

func (s *LocalStorage) getFullPath(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}
