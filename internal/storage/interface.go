package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound   = errors.New("file not found")
	ErrInvalidKey = errors.New("invalid storage key")
	ErrTooLarge   = errors.New("file exceeds the size limit")
)

// FileStorage stores uploaded documents under opaque keys.
type FileStorage interface {
	// Save writes at most limit bytes from r under key and returns the size
	// written. Files larger than limit are rejected with ErrTooLarge.
	Save(ctx context.Context, key string, r io.Reader, limit int64) (int64, error)

	// Open returns the stored file; ErrNotFound if it does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a file. Deleting a missing file is not an error.
	Delete(ctx context.Context, key string) error
}
