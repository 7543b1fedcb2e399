package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"rentacar-backend/internal/logger"

	"github.com/google/uuid"
)

var keyPattern = regexp.MustCompile(`^[a-f0-9-]{36}\.[a-z0-9]{1,5}$`)

// LocalStorage implements FileStorage on the local filesystem.
type LocalStorage struct {
	documentsDir string
}

func NewLocalStorage(uploadsDir string) (*LocalStorage, error) {
	documentsDir := filepath.Join(uploadsDir, "documents")
	if err := os.MkdirAll(documentsDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create documents directory: %w", err)
	}
	return &LocalStorage{documentsDir: documentsDir}, nil
}

// NewKey returns a fresh storage key keeping the lower-cased extension of
// filename.
func NewKey(filename string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}

func (s *LocalStorage) path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.documentsDir, key), nil
}

func (s *LocalStorage) Save(ctx context.Context, key string, r io.Reader, limit int64) (int64, error) {
	logger.ExternalServiceCall("local-storage", "Save", "key", key)
	fullPath, err := s.path(key)
	if err != nil {
		return 0, err
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		logger.ExternalServiceResult("local-storage", "Save", err, "key", key)
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(file, io.LimitReader(r, limit+1))
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > limit {
		err = ErrTooLarge
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		os.Remove(fullPath)
		logger.ExternalServiceResult("local-storage", "Save", err, "key", key)
		return 0, err
	}

	logger.ExternalServiceResult("local-storage", "Save", nil, "key", key, "size", n)
	return n, nil
}

func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
