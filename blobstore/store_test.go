package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	tests := []struct {
		name string
		fn   func(t *testing.T)
	}{
		{
			name: "put and open",
			fn: func(t *testing.T) {
				require.NoError(t, store.Put(ctx, "a.vec", []byte("hello world")))

				blob, err := store.Open(ctx, "a.vec")
				require.NoError(t, err)
				defer blob.Close()

				assert.Equal(t, int64(11), blob.Size())

				data, err := ReadAll(blob)
				require.NoError(t, err)
				assert.Equal(t, "hello world", string(data))
			},
		},
		{
			name: "put replaces atomically",
			fn: func(t *testing.T) {
				require.NoError(t, store.Put(ctx, "a.vec", []byte("v1")))
				require.NoError(t, store.Put(ctx, "a.vec", []byte("version-two")))

				blob, err := store.Open(ctx, "a.vec")
				require.NoError(t, err)
				defer blob.Close()

				data, err := ReadAll(blob)
				require.NoError(t, err)
				assert.Equal(t, "version-two", string(data))
			},
		},
		{
			name: "open missing",
			fn: func(t *testing.T) {
				_, err := store.Open(ctx, "missing.vec")
				assert.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			name: "put into nested directory",
			fn: func(t *testing.T) {
				require.NoError(t, store.Put(ctx, "nested/dir/b.vec", []byte("x")))

				blob, err := store.Open(ctx, "nested/dir/b.vec")
				require.NoError(t, err)
				require.NoError(t, blob.Close())
			},
		},
		{
			name: "delete",
			fn: func(t *testing.T) {
				require.NoError(t, store.Put(ctx, "del.vec", []byte("x")))
				require.NoError(t, store.Delete(ctx, "del.vec"))

				_, err := store.Open(ctx, "del.vec")
				assert.ErrorIs(t, err, ErrNotFound)

				// Deleting again is not an error.
				assert.NoError(t, store.Delete(ctx, "del.vec"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.fn)
	}
}

func TestLocalStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	require.NoError(t, store.Put(ctx, "archives/one.vec", []byte("1")))
	require.NoError(t, store.Put(ctx, "archives/two.vec", []byte("2")))
	require.NoError(t, store.Put(ctx, "other.json", []byte("{}")))

	names, err := store.List(ctx, "archives/")
	require.NoError(t, err)
	assert.Equal(t, []string{"archives/one.vec", "archives/two.vec"}, names)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLocalStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)

	require.NoError(t, store.Put(context.Background(), "a.vec", []byte("data")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.vec", entries[0].Name())
	assert.Equal(t, filepath.Ext(entries[0].Name()), ".vec")
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Open(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "a", []byte("payload")))

	blob, err := store.Open(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(7), blob.Size())

	buf := make([]byte, 4)
	n, err := blob.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "load", string(buf))

	_, err = blob.ReadAt(buf, 7)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Open(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	original := []byte("immutable")
	require.NoError(t, store.Put(ctx, "a", original))
	original[0] = 'X'

	blob, err := store.Open(ctx, "a")
	require.NoError(t, err)

	data, err := ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, "immutable", string(data))
}
