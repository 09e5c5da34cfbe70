// Package clio answers nearest-neighbor queries over a fixed collection of
// precomputed image embeddings keyed by opaque string identifiers.
//
// An Index is built offline from identifiers and vectors, persisted as a
// single archive file and loaded once at startup:
//
//	idx, err := clio.Load("collection.vec")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	results, err := idx.Query(ctx, queryVector, 10)
//	for _, r := range results {
//	    fmt.Println(r.Identifier, r.Score)
//	}
//
// Queries run a full linear scan with cosine similarity. At the intended
// scale (hundreds to low thousands of records) this is exact, fast and needs
// no approximate-nearest-neighbor structure. The index is immutable after
// load and safe for concurrent queries without synchronization; a new
// dataset version is published by building a new archive and replacing the
// old file atomically.
//
// Archives can also live in object storage; see the blobstore package and
// LoadFromStore.
package clio

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cliosearch/clio/archive"
	"github.com/cliosearch/clio/blobstore"
	"github.com/cliosearch/clio/distance"
	"golang.org/x/sync/errgroup"
)

// scoreTolerance is the band within which two similarity scores count as
// tied; ties are broken by ascending identifier for deterministic output.
const scoreTolerance = 1e-6

// Record pairs an identifier with its embedding vector.
type Record struct {
	Identifier string
	Vector     []float32
}

// Result is a single query hit. Score is the cosine similarity between the
// query and the stored vector, in [-1, 1].
type Result struct {
	Identifier string
	Score      float32
}

// Index holds the loaded embedding collection. It is immutable and safe for
// concurrent use.
type Index struct {
	identifiers []string
	vectors     []float32 // count * dim, row-major, L2-normalized
	dim         int
	byID        map[string]int
	logger      *Logger
}

// Load reads the archive at path and builds an index from it. All failure
// modes (missing file, corruption, ragged vectors) satisfy
// errors.Is(err, ErrLoad).
func Load(path string, optFns ...Option) (*Index, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	data, err := archive.Open(path)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrLoad, err)
		opts.logger.LogLoad(context.Background(), path, 0, 0, err)
		return nil, err
	}

	idx, err := newIndex(data, opts)
	opts.logger.LogLoad(context.Background(), path, idx.lenOrZero(), idx.dimOrZero(), err)
	return idx, err
}

// LoadFromStore reads the named archive from a blob store. Local stores use
// a zero-copy mmap read; object stores download the blob.
func LoadFromStore(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*Index, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	idx, err := loadFromStore(ctx, store, name, opts)
	opts.logger.LogLoad(ctx, name, idx.lenOrZero(), idx.dimOrZero(), err)
	return idx, err
}

func loadFromStore(ctx context.Context, store blobstore.BlobStore, name string, opts options) (*Index, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	defer func() { _ = blob.Close() }()

	buf, err := blobstore.ReadAll(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	data, err := archive.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	return newIndex(data, opts)
}

func newIndex(data *archive.Data, opts options) (*Index, error) {
	idx := &Index{
		identifiers: data.Identifiers,
		vectors:     data.Vectors,
		dim:         data.Dimension,
		byID:        make(map[string]int, len(data.Identifiers)),
		logger:      opts.logger,
	}

	for i, id := range data.Identifiers {
		idx.byID[id] = i
	}

	// Archives written by this module are normalized at build time; older
	// or foreign archives get normalized here so cosine similarity reduces
	// to a dot product at query time.
	if !data.Normalized {
		for i := range idx.identifiers {
			row := idx.vectors[i*idx.dim : (i+1)*idx.dim]
			if !distance.NormalizeL2InPlace(row) {
				return nil, fmt.Errorf("%w: %w", ErrLoad,
					&archive.ZeroVectorError{Identifier: idx.identifiers[i]})
			}
		}
	}

	return idx, nil
}

// Len returns the number of records.
func (idx *Index) Len() int {
	return len(idx.identifiers)
}

// Dimension returns the embedding dimension.
func (idx *Index) Dimension() int {
	return idx.dim
}

// Identifiers returns all identifiers in record order. The slice is shared;
// callers must not modify it.
func (idx *Index) Identifiers() []string {
	return idx.identifiers
}

// VectorAt returns the (normalized) vector of the i-th record. The slice is
// a view into the index; callers must not modify it.
func (idx *Index) VectorAt(i int) []float32 {
	return idx.vectors[i*idx.dim : (i+1)*idx.dim]
}

// Lookup returns the record for an identifier.
func (idx *Index) Lookup(identifier string) (Record, error) {
	i, ok := idx.byID[identifier]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownIdentifier, identifier)
	}
	return Record{Identifier: identifier, Vector: idx.VectorAt(i)}, nil
}

// Subset returns a bitmap of record ordinals whose identifier starts with
// prefix, for use with WithSubset.
func (idx *Index) Subset(prefix string) *roaring.Bitmap {
	bm := roaring.New()
	for i, id := range idx.identifiers {
		if strings.HasPrefix(id, prefix) {
			bm.Add(uint32(i))
		}
	}
	return bm
}

// Query returns the k records most similar to vector by cosine similarity,
// sorted by descending score. Scores within 1e-6 of each other are ordered
// by ascending identifier, so output is deterministic. k is clamped to the
// record count. Query is read-only and safe to call concurrently.
func (idx *Index) Query(ctx context.Context, vector []float32, k int, optFns ...QueryOption) ([]Result, error) {
	var qo queryOptions
	for _, fn := range optFns {
		fn(&qo)
	}

	results, err := idx.query(ctx, vector, k, &qo)
	idx.logger.LogQuery(ctx, k, len(results), err)
	return results, err
}

func (idx *Index) query(ctx context.Context, vector []float32, k int, qo *queryOptions) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if len(vector) != idx.dim {
		return nil, &DimensionMismatchError{Expected: idx.dim, Actual: len(vector)}
	}

	query, ok := distance.NormalizeL2Copy(vector)
	if !ok {
		return nil, fmt.Errorf("%w: zero magnitude", ErrInvalidQuery)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []Result
	if qo.subset != nil {
		results = make([]Result, 0, qo.subset.GetCardinality())
		it := qo.subset.Iterator()
		for it.HasNext() {
			i := int(it.Next())
			if i >= idx.Len() {
				break
			}
			results = append(results, Result{
				Identifier: idx.identifiers[i],
				Score:      distance.Dot(query, idx.VectorAt(i)),
			})
		}
	} else {
		results = make([]Result, idx.Len())
		for i := range results {
			results[i] = Result{
				Identifier: idx.identifiers[i],
				Score:      distance.Dot(query, idx.VectorAt(i)),
			}
		}
	}

	// Quantizing to the tolerance keeps the comparator transitive: banded
	// "close enough" comparisons are not, and break sort.Slice.
	bucket := func(r Result) int64 {
		return int64(math.Round(float64(r.Score) / scoreTolerance))
	}
	sort.Slice(results, func(i, j int) bool {
		bi, bj := bucket(results[i]), bucket(results[j])
		if bi != bj {
			return bi > bj
		}
		return results[i].Identifier < results[j].Identifier
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// QueryBatch runs one query per input vector concurrently and returns the
// result slices in input order. The first error cancels the remaining
// queries.
func (idx *Index) QueryBatch(ctx context.Context, vectors [][]float32, k int, optFns ...QueryOption) ([][]Result, error) {
	var qo queryOptions
	for _, fn := range optFns {
		fn(&qo)
	}

	concurrency := qo.concurrency
	if concurrency < 1 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	out := make([][]Result, len(vectors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, vector := range vectors {
		g.Go(func() error {
			results, err := idx.query(gctx, vector, k, &qo)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			out[i] = results
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		idx.logger.LogQuery(ctx, k, 0, err)
		return nil, err
	}

	idx.logger.DebugContext(ctx, "batch query completed",
		"queries", len(vectors),
		"k", k,
	)
	return out, nil
}

// lenOrZero tolerates a nil index in logging paths.
func (idx *Index) lenOrZero() int {
	if idx == nil {
		return 0
	}
	return idx.Len()
}

func (idx *Index) dimOrZero() int {
	if idx == nil {
		return 0
	}
	return idx.dim
}
