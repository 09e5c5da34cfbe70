// Package openai adapts the OpenAI embeddings API as an encoder.TextEncoder.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "text-embedding-3-small"
	// DefaultDimension matches DefaultModel's native output size.
	DefaultDimension = 1536
	// maxBatchSize is the OpenAI embeddings API input limit.
	maxBatchSize = 100
)

// ErrAPIKeyNotSet is returned when no API key is configured and
// OPENAI_API_KEY is unset.
var ErrAPIKeyNotSet = errors.New("OpenAI API key not set: set OPENAI_API_KEY")

// Options configures the encoder.
type Options struct {
	// Model is the embedding model name.
	Model string

	// Dimension requests a specific output dimension for models that
	// support shortened embeddings. Must match the archive dimension.
	Dimension int

	// RequestsPerSecond rate-limits API calls. Zero disables limiting.
	RequestsPerSecond float64
}

// Encoder encodes text prompts with the OpenAI embeddings API.
type Encoder struct {
	client    openai.Client
	model     string
	dimension int
	limiter   *rate.Limiter
}

// New creates an encoder with the API key from OPENAI_API_KEY.
func New(optFns ...func(o *Options)) (*Encoder, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	return NewWithAPIKey(apiKey, optFns...)
}

// NewWithAPIKey creates an encoder with an explicit API key.
func NewWithAPIKey(apiKey string, optFns ...func(o *Options)) (*Encoder, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	opts := Options{
		Model:     DefaultModel,
		Dimension: DefaultDimension,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Encoder{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     opts.Model,
		dimension: opts.Dimension,
		limiter:   limiter,
	}, nil
}

// EncodeText returns one embedding per input text, in input order. Inputs
// are split into API-sized batches.
func (e *Encoder) EncodeText(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided")
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.encodeBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

func (e *Encoder) encodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
	}
	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(texts[0]),
		}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		}
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("generate embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vector := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vector[j] = float32(v)
		}
		vectors[i] = vector
	}

	return vectors, nil
}

// Dimension returns the configured output dimension.
func (e *Encoder) Dimension() int {
	return e.dimension
}

// ModelName returns the embedding model name.
func (e *Encoder) ModelName() string {
	return e.model
}
