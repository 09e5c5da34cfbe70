package commands

import (
	"context"
	"fmt"
	"slices"

	"github.com/cliosearch/clio/fetch"
	"github.com/urfave/cli/v3"
)

// FetchAction downloads collection images listed in a metadata file.
func FetchAction(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger()

	resolution := cmd.String("resolution")
	if !slices.Contains(fetch.Resolutions, resolution) {
		return fmt.Errorf("unknown resolution %q (valid: %v)", resolution, fetch.Resolutions)
	}

	report, err := fetch.Run(ctx, cmd.String("metadata"), cmd.String("output"), func(o *fetch.Options) {
		o.Resolution = resolution
		o.Max = int(cmd.Int("max"))
		o.Concurrency = int(cmd.Int("workers"))
		o.Logger = logger.Logger
	})
	if err != nil {
		return err
	}

	fmt.Printf("downloaded: %d\n", report.Downloaded)
	fmt.Printf("skipped:    %d\n", report.Skipped)
	fmt.Printf("failed:     %d\n", report.Failed())

	if report.Failed() > 0 {
		for _, f := range report.Failures {
			fmt.Printf("  %s: %v\n", f.Filename, f.Err)
		}
		return fmt.Errorf("%d downloads failed", report.Failed())
	}
	return nil
}
