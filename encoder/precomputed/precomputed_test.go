package precomputed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{"identifier": "a.jpg", "vector": [1, 0], "model": "ViT-B/32"}
{"identifier": "b.jpg", "vector": [0, 1]}

{"identifier": "c.jpg", "vector": [0.5, 0.5]}
`

func TestRead(t *testing.T) {
	src, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, src.Identifiers())
	assert.Equal(t, 2, src.Dimension())
	assert.Equal(t, "ViT-B/32", src.ModelName())
}

func TestVectorsFor(t *testing.T) {
	src, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	vectors, err := src.VectorsFor(context.Background(), []string{"c.jpg", "a.jpg"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 0.5}, {1, 0}}, vectors)

	_, err = src.VectorsFor(context.Background(), []string{"a.jpg", "missing.jpg"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.jpg")
}

func TestReadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: "garbage\n"},
		{name: "missing identifier", input: `{"vector": [1, 0]}` + "\n"},
		{name: "missing vector", input: `{"identifier": "a"}` + "\n"},
		{name: "ragged vectors", input: `{"identifier": "a", "vector": [1, 0]}` + "\n" + `{"identifier": "b", "vector": [1]}` + "\n"},
		{name: "duplicate identifier", input: `{"identifier": "a", "vector": [1]}` + "\n" + `{"identifier": "a", "vector": [2]}` + "\n"},
		{name: "empty file", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	src, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 3, len(src.Identifiers()))

	_, err = Open(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
