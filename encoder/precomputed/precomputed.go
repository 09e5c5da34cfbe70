// Package precomputed serves image embeddings from a JSONL file produced by
// an offline embedding pipeline. Each line holds one record:
//
//	{"identifier": "images/a.jpg", "vector": [0.12, -0.03, ...], "model": "ViT-B/32"}
//
// The model field is optional after the first line; the first value seen
// wins.
package precomputed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// line is the JSONL row format.
type line struct {
	Identifier string    `json:"identifier"`
	Vector     []float32 `json:"vector"`
	Model      string    `json:"model,omitempty"`
}

// Source holds vectors keyed by identifier.
type Source struct {
	vectors   map[string][]float32
	order     []string
	dimension int
	model     string
}

// Open reads a JSONL vector file from path.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	src, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// Read parses JSONL vector records from r.
func Read(r io.Reader) (*Source, error) {
	src := &Source{vectors: make(map[string][]float32)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec line
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if rec.Identifier == "" {
			return nil, fmt.Errorf("line %d: missing identifier", lineNo)
		}
		if len(rec.Vector) == 0 {
			return nil, fmt.Errorf("line %d: missing vector", lineNo)
		}

		if src.dimension == 0 {
			src.dimension = len(rec.Vector)
		} else if len(rec.Vector) != src.dimension {
			return nil, fmt.Errorf("line %d: vector has length %d, want %d", lineNo, len(rec.Vector), src.dimension)
		}

		if _, exists := src.vectors[rec.Identifier]; exists {
			return nil, fmt.Errorf("line %d: duplicate identifier %q", lineNo, rec.Identifier)
		}
		src.vectors[rec.Identifier] = rec.Vector
		src.order = append(src.order, rec.Identifier)

		if src.model == "" && rec.Model != "" {
			src.model = rec.Model
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(src.order) == 0 {
		return nil, fmt.Errorf("no vector records found")
	}

	return src, nil
}

// VectorsFor returns one vector per identifier, in input order.
func (s *Source) VectorsFor(_ context.Context, identifiers []string) ([][]float32, error) {
	vectors := make([][]float32, len(identifiers))
	for i, id := range identifiers {
		v, ok := s.vectors[id]
		if !ok {
			return nil, fmt.Errorf("no vector for identifier %q", id)
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Identifiers returns all identifiers in file order.
func (s *Source) Identifiers() []string {
	return s.order
}

// Dimension returns the vector dimension.
func (s *Source) Dimension() int {
	return s.dimension
}

// ModelName returns the model recorded in the file, or "" if absent.
func (s *Source) ModelName() string {
	return s.model
}
