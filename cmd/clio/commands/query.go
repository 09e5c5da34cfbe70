package commands

import (
	"context"
	"fmt"

	"github.com/cliosearch/clio"
	"github.com/cliosearch/clio/encoder/openai"
	"github.com/urfave/cli/v3"
)

// QueryAction encodes a text prompt and prints the closest records.
func QueryAction(ctx context.Context, cmd *cli.Command) error {
	loadEnv(cmd.String("env"))
	logger := newLogger()

	idx, err := clio.Load(cmd.String("archive"), clio.WithLogger(logger))
	if err != nil {
		return err
	}

	enc, err := openai.New(func(o *openai.Options) {
		if model := cmd.String("model"); model != "" {
			o.Model = model
		}
		o.Dimension = idx.Dimension()
	})
	if err != nil {
		return err
	}

	prompt := cmd.String("text")
	vectors, err := enc.EncodeText(ctx, []string{prompt})
	if err != nil {
		return err
	}

	var queryOpts []clio.QueryOption
	if prefix := cmd.String("prefix"); prefix != "" {
		subset := idx.Subset(prefix)
		if subset.IsEmpty() {
			return fmt.Errorf("no identifiers with prefix %q", prefix)
		}
		queryOpts = append(queryOpts, clio.WithSubset(subset))
	}

	results, err := idx.Query(ctx, vectors[0], int(cmd.Int("k")), queryOpts...)
	if err != nil {
		return err
	}

	for rank, r := range results {
		fmt.Printf("%2d. %-60s %.4f\n", rank+1, r.Identifier, r.Score)
	}
	return nil
}
