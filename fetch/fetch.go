// Package fetch downloads collection images listed in a metadata file, for
// the offline embedding step. Downloads run on a bounded worker pool with a
// global rate limit; existing files are skipped so interrupted runs can
// resume.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options configures a download run.
type Options struct {
	// Resolution selects which image URL to download. See Resolutions.
	Resolution string

	// Max caps the number of objects considered. Zero means all.
	Max int

	// Concurrency bounds parallel downloads.
	Concurrency int

	// RatePerSecond is the global request rate limit.
	RatePerSecond float64

	// Timeout applies per request.
	Timeout time.Duration

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client

	// Logger receives progress output. Nil discards it.
	Logger *slog.Logger
}

// DefaultOptions mirror a polite batch download: four workers, ten requests
// per second, 30s per request.
var DefaultOptions = Options{
	Resolution:    "500",
	Concurrency:   4,
	RatePerSecond: 10,
	Timeout:       30 * time.Second,
}

// Failure records one image that could not be downloaded.
type Failure struct {
	Filename string
	URL      string
	Err      error
}

// Report summarizes a download run.
type Report struct {
	Downloaded int
	Skipped    int
	Failures   []Failure
}

// Failed returns the number of failed downloads.
func (r *Report) Failed() int {
	return len(r.Failures)
}

type task struct {
	url      string
	filename string
}

// Run downloads the images referenced by the metadata file into outputDir.
// Individual download failures do not abort the run; they are collected in
// the report. The error return covers setup problems (unreadable metadata,
// unwritable output directory) and context cancellation.
func Run(ctx context.Context, metadataPath, outputDir string, optFns ...func(o *Options)) (*Report, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	objects, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	report := &Report{}
	tasks := make([]task, 0, len(objects))
	considered := 0
	for _, obj := range objects {
		url := obj.ImageURL(opts.Resolution)
		if url == "" {
			continue
		}
		if opts.Max > 0 && considered >= opts.Max {
			break
		}
		considered++

		filename := obj.Filename()
		if _, err := os.Stat(filepath.Join(outputDir, filename)); err == nil {
			report.Skipped++
			continue
		}
		tasks = append(tasks, task{url: url, filename: filename})
	}

	logger.InfoContext(ctx, "starting download",
		"objects", len(objects),
		"queued", len(tasks),
		"skipped", report.Skipped,
		"resolution", opts.Resolution,
	)

	limiter := rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	if opts.RatePerSecond <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, tk := range tasks {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}

			err := downloadOne(gctx, client, tk.url, filepath.Join(outputDir, tk.filename), opts.Timeout)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures = append(report.Failures, Failure{
					Filename: tk.filename,
					URL:      tk.url,
					Err:      err,
				})
				logger.WarnContext(gctx, "download failed",
					"file", tk.filename,
					"error", err,
				)
				return nil
			}
			report.Downloaded++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	logger.InfoContext(ctx, "download complete",
		"downloaded", report.Downloaded,
		"failed", report.Failed(),
		"skipped", report.Skipped,
	)
	return report, nil
}

// downloadOne fetches url to path via a temp file, so a failed request
// never leaves a truncated image behind.
func downloadOne(ctx context.Context, client *http.Client, url, path string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, err = io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
