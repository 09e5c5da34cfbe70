package commands

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cliosearch/clio/archive"
	"github.com/cliosearch/clio/encoder/precomputed"
	"github.com/urfave/cli/v3"
)

// imageExtensions are the file types considered part of a collection.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// BuildAction builds an embedding archive from an image directory and a
// precomputed vector file.
func BuildAction(ctx context.Context, cmd *cli.Command) error {
	loadEnv(cmd.String("env"))
	logger := newLogger()

	imagesDir := cmd.String("images")
	outputPath := cmd.String("output")

	codec, err := archive.ParseCompression(cmd.String("compression"))
	if err != nil {
		return err
	}

	identifiers, err := listImages(imagesDir)
	if err != nil {
		return err
	}
	if len(identifiers) == 0 {
		return fmt.Errorf("no images found under %s", imagesDir)
	}

	source, err := precomputed.Open(cmd.String("vectors"))
	if err != nil {
		return err
	}

	vectors, err := source.VectorsFor(ctx, identifiers)
	if err != nil {
		return err
	}

	if err := archive.Save(outputPath, identifiers, vectors, func(o *archive.Options) {
		o.Codec = codec
	}); err != nil {
		return err
	}

	model := cmd.String("model")
	if model == "" {
		model = source.ModelName()
	}
	manifest := archive.Manifest{
		ModelName:   model,
		Dimension:   source.Dimension(),
		Count:       len(identifiers),
		Identifiers: identifiers,
	}
	if err := archive.WriteSidecar(archive.SidecarPath(outputPath), manifest); err != nil {
		return err
	}

	logger.InfoContext(ctx, "archive built",
		"output", outputPath,
		"images", len(identifiers),
		"dimension", source.Dimension(),
		"compression", codec.String(),
	)
	return nil
}

// listImages walks dir recursively and returns the relative paths of all
// image files, sorted, using forward slashes. Relative paths double as
// record identifiers.
func listImages(dir string) ([]string, error) {
	var identifiers []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		identifiers = append(identifiers, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(identifiers)
	return identifiers, nil
}
