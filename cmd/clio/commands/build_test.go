package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cliosearch/clio"
	"github.com/cliosearch/clio/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"b.jpg",
		"a.PNG",
		"sub/c.webp",
		"sub/d.jpeg",
		"notes.txt",
		"vectors.jsonl",
	} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	identifiers, err := listImages(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.PNG", "b.jpg", "sub/c.webp", "sub/d.jpeg"}, identifiers)
}

// buildCommand wires BuildAction into a minimal command tree for tests.
func buildCommand() *cli.Command {
	return &cli.Command{
		Commands: []*cli.Command{
			{
				Name: "build",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "env"},
					&cli.StringFlag{Name: "images", Required: true},
					&cli.StringFlag{Name: "output", Required: true},
					&cli.StringFlag{Name: "vectors", Required: true},
					&cli.StringFlag{Name: "model"},
					&cli.StringFlag{Name: "compression", Value: "zstd"},
				},
				Action: BuildAction,
			},
		},
	}
}

func TestBuildAction(t *testing.T) {
	dir := t.TempDir()

	imagesDir := filepath.Join(dir, "images")
	require.NoError(t, os.MkdirAll(imagesDir, 0o755))
	for _, name := range []string{"a.jpg", "b.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(imagesDir, name), []byte("img"), 0o644))
	}

	var lines string
	for i, rec := range []struct {
		id  string
		vec []float32
	}{
		{id: "a.jpg", vec: []float32{1, 0}},
		{id: "b.jpg", vec: []float32{0, 1}},
	} {
		row, err := json.Marshal(map[string]any{
			"identifier": rec.id,
			"vector":     rec.vec,
			"model":      "ViT-B/32",
		})
		require.NoError(t, err)
		if i > 0 {
			lines += "\n"
		}
		lines += string(row)
	}
	vectorsPath := filepath.Join(dir, "vectors.jsonl")
	require.NoError(t, os.WriteFile(vectorsPath, []byte(lines), 0o644))

	outputPath := filepath.Join(dir, "coll.vec")
	err := buildCommand().Run(context.Background(), []string{
		"clio", "build",
		"--images", imagesDir,
		"--output", outputPath,
		"--vectors", vectorsPath,
	})
	require.NoError(t, err)

	idx, err := clio.Load(outputPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, idx.Identifiers())

	manifest, err := archive.ReadSidecar(archive.SidecarPath(outputPath))
	require.NoError(t, err)
	assert.Equal(t, "ViT-B/32", manifest.ModelName)
	assert.Equal(t, 2, manifest.Count)
}

func TestBuildActionMissingVector(t *testing.T) {
	dir := t.TempDir()

	imagesDir := filepath.Join(dir, "images")
	require.NoError(t, os.MkdirAll(imagesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(imagesDir, "a.jpg"), []byte("img"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(imagesDir, "orphan.jpg"), []byte("img"), 0o644))

	vectorsPath := filepath.Join(dir, "vectors.jsonl")
	require.NoError(t, os.WriteFile(vectorsPath,
		[]byte(`{"identifier": "a.jpg", "vector": [1, 0]}`), 0o644))

	outputPath := filepath.Join(dir, "coll.vec")
	err := buildCommand().Run(context.Background(), []string{
		"clio", "build",
		"--images", imagesDir,
		"--output", outputPath,
		"--vectors", vectorsPath,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orphan.jpg")

	// A failed build leaves no archive behind.
	_, statErr := os.Stat(outputPath)
	assert.True(t, os.IsNotExist(statErr), fmt.Sprintf("unexpected archive: %v", statErr))
}
