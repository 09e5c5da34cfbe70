// Package encoder defines the interfaces for obtaining embedding vectors.
// The embedding models themselves are external; the index only needs their
// output to match the archive dimension.
package encoder

import "context"

// TextEncoder turns text prompts into embedding vectors of a fixed
// dimension.
type TextEncoder interface {
	// EncodeText returns one vector per input text, in input order.
	EncodeText(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the output vector dimension.
	Dimension() int

	// ModelName identifies the underlying model, recorded in the archive
	// sidecar.
	ModelName() string
}

// ImageVectorSource supplies precomputed image embeddings for build runs.
// Image models (CLIP and friends) typically run offline in a separate
// pipeline; a source adapts that pipeline's output.
type ImageVectorSource interface {
	// VectorsFor returns one vector per identifier, in input order. A
	// missing identifier is an error: the build must not silently skip
	// images.
	VectorsFor(ctx context.Context, identifiers []string) ([][]float32, error)

	// Dimension returns the vector dimension.
	Dimension() int

	// ModelName identifies the model that produced the vectors.
	ModelName() string
}
