package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/cliosearch/clio/archive"
	"github.com/urfave/cli/v3"
)

// InspectAction prints the archive header and, when present, the sidecar
// manifest.
func InspectAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("archive")

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := archive.ReadHeader(f)
	if err != nil {
		return err
	}

	fmt.Printf("archive:     %s\n", path)
	fmt.Printf("size:        %d bytes\n", fi.Size())
	fmt.Printf("version:     %d\n", header.Version)
	fmt.Printf("records:     %d\n", header.Count)
	fmt.Printf("dimension:   %d\n", header.Dimension)
	fmt.Printf("compression: %s\n", archive.Compression(header.Codec))
	fmt.Printf("normalized:  %v\n", header.Normalized())

	sidecarPath := archive.SidecarPath(path)
	manifest, err := archive.ReadSidecar(sidecarPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	fmt.Printf("sidecar:     %s\n", sidecarPath)
	fmt.Printf("model:       %s\n", manifest.ModelName)
	return nil
}
