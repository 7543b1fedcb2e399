package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	t.Run("Save, open and delete", func(t *testing.T) {
		key := NewKey("License.PDF")
		assert.True(t, strings.HasSuffix(key, ".pdf"))

		n, err := s.Save(ctx, key, strings.NewReader("hello"), 10)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)

		rc, err := s.Open(ctx, key)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))

		require.NoError(t, s.Delete(ctx, key))
		_, err = s.Open(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, s.Delete(ctx, key))
	})

	t.Run("Too large", func(t *testing.T) {
		key := NewKey("scan.png")
		_, err := s.Save(ctx, key, strings.NewReader("0123456789"), 4)
		assert.ErrorIs(t, err, ErrTooLarge)

		_, err = s.Open(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Path traversal", func(t *testing.T) {
		_, err := s.Open(ctx, "../../etc/passwd")
		assert.ErrorIs(t, err, ErrInvalidKey)
		_, err = s.Save(ctx, "../x.pdf", strings.NewReader("x"), 10)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}
