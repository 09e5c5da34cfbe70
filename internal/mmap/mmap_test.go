package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Run("maps file contents", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "blob")
		require.NoError(t, os.WriteFile(path, []byte("hello mmap"), 0o644))

		m, err := Open(path)
		require.NoError(t, err)
		defer m.Close()

		assert.Equal(t, []byte("hello mmap"), m.Bytes())

		buf := make([]byte, 4)
		n, err := m.ReadAt(buf, 6)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, []byte("mmap"), buf[:n])
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		m, err := Open(path)
		require.NoError(t, err)
		defer m.Close()

		assert.Empty(t, m.Bytes())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})
}
