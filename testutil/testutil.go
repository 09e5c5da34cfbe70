// Package testutil provides seeded random vector generation for
// reproducible tests and benchmarks.
package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// RNG is a seeded, thread-safe random number generator for reproducible
// test data.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates an RNG with the given seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset rewinds the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// FillUniform fills vec with uniform values in [0, 1).
func (r *RNG) FillUniform(vec []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range vec {
		vec[i] = r.rand.Float32()
	}
}

// FillGaussian fills vec with standard normal values.
func (r *RNG) FillGaussian(vec []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range vec {
		vec[i] = float32(r.rand.NormFloat64())
	}
}

// UnitVector returns a random vector of the given dimension with unit L2
// norm. Gaussian components make the direction uniform on the sphere.
func (r *RNG) UnitVector(dim int) []float32 {
	vec := make([]float32, dim)
	for {
		r.FillGaussian(vec)

		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		if sum == 0 {
			continue
		}

		norm := float32(math.Sqrt(sum))
		for i := range vec {
			vec[i] /= norm
		}
		return vec
	}
}

// Collection returns n unit vectors of the given dimension together with
// generated identifiers ("img-0000.jpg", ...).
func (r *RNG) Collection(n, dim int) ([]string, [][]float32) {
	ids := make([]string, n)
	vectors := make([][]float32, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("img-%04d.jpg", i)
		vectors[i] = r.UnitVector(dim)
	}
	return ids, vectors
}
