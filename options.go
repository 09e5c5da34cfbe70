package clio

import (
	"github.com/RoaringBitmap/roaring/v2"
)

type options struct {
	logger *Logger
}

func defaultOptions() options {
	return options{
		logger: NoopLogger(),
	}
}

// Option configures index construction.
type Option func(*options)

// WithLogger sets the logger used during load and query. The default
// discards all output.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

type queryOptions struct {
	subset      *roaring.Bitmap
	concurrency int
}

// QueryOption configures a single query or batch of queries.
type QueryOption func(*queryOptions)

// WithSubset restricts the scan to records whose ordinal position is set in
// the bitmap. Use Index.Subset to build one from an identifier prefix.
// Ordinals outside the index range are ignored.
func WithSubset(subset *roaring.Bitmap) QueryOption {
	return func(o *queryOptions) {
		o.subset = subset
	}
}

// WithConcurrency bounds the number of queries QueryBatch runs in parallel.
// Values below 1 fall back to the number of CPUs. Single queries ignore it.
func WithConcurrency(n int) QueryOption {
	return func(o *queryOptions) {
		o.concurrency = n
	}
}
