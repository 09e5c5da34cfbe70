package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cliosearch/clio/cmd/clio/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "clio",
		Usage: "semantic image search over precomputed embeddings",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "build an embedding archive from an image directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "environment file path",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "images",
						Usage:    "directory of images (walked recursively)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output",
						Usage:    "output archive path",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "vectors",
						Usage:    "JSONL file of precomputed image vectors",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "model name recorded in the sidecar (overrides the vectors file)",
					},
					&cli.StringFlag{
						Name:  "compression",
						Usage: "archive compression (zstd, lz4, none)",
						Value: "zstd",
					},
				},
				Action: commands.BuildAction,
			},
			{
				Name:  "query",
				Usage: "query an archive with a text prompt",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "environment file path",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "archive",
						Usage:    "archive path",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "text",
						Usage:    "text prompt to search for",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "k",
						Aliases: []string{"n"},
						Usage:   "number of results",
						Value:   10,
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "restrict results to identifiers with this prefix",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "text embedding model",
					},
				},
				Action: commands.QueryAction,
			},
			{
				Name:  "inspect",
				Usage: "print archive header and manifest",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "archive",
						Usage:    "archive path",
						Required: true,
					},
				},
				Action: commands.InspectAction,
			},
			{
				Name:  "fetch",
				Usage: "download collection images for the offline embedding step",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "metadata",
						Aliases:  []string{"m"},
						Usage:    "objects.json metadata path",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "output directory",
						Value:   "images",
					},
					&cli.StringFlag{
						Name:    "resolution",
						Aliases: []string{"r"},
						Usage:   "image resolution (25, 250, 500, 1000, 2000, 4000)",
						Value:   "500",
					},
					&cli.IntFlag{
						Name:  "max",
						Usage: "maximum number of images (0 = all)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "concurrent downloads",
						Value: 4,
					},
				},
				Action: commands.FetchAction,
			},
			{
				Name:  "publish",
				Usage: "upload an archive to object storage and flip the CURRENT pointer",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "environment file path",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:     "archive",
						Usage:    "archive path",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "bucket",
						Usage:    "target bucket",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "key prefix inside the bucket",
						Value: "collections",
					},
					&cli.StringFlag{
						Name:  "endpoint",
						Usage: "S3-compatible endpoint (MinIO); empty uses AWS",
					},
					&cli.StringFlag{
						Name:  "commit-table",
						Usage: "DynamoDB table for atomic CURRENT commits (AWS only)",
					},
				},
				Action: commands.PublishAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "clio:", err)
		os.Exit(1)
	}
}
