// Package hashing provides a local, deterministic embedder built on the
// feature-hashing trick. It needs no network or API key, which makes it the
// default provider for development and tests. Vectors carry no semantic
// meaning beyond token overlap, so retrieval quality is limited to
// lexical similarity.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/stackmint/docqa/internal/domain"
)

// DefaultDimensions is used when the configuration leaves dimensions unset.
const DefaultDimensions = 384

// Embedder hashes lowercase word tokens into a fixed-size vector.
type Embedder struct {
	dims int
}

var _ domain.Embedder = (*Embedder)(nil)

// New creates a hashing embedder with the given vector size.
func New(dims int) (*Embedder, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dims)
	}
	return &Embedder{dims: dims}, nil
}

// Embed maps text to an L2-normalized bag-of-hashed-tokens vector.
// Identical text always yields an identical vector.
func (e *Embedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vec := make([]float32, e.dims)

	for _, tok := range tokenize(text) {
		idx, sign := e.slot(tok)
		vec[idx] += sign
	}

	normalize(vec)

	// Token usage stays zero: nothing is consumed locally.
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// HealthCheck always succeeds: the embedder has no external dependency.
func (e *Embedder) HealthCheck(_ context.Context) error {
	return nil
}

// slot returns the vector index and a +1/-1 sign for a token. The sign bit
// halves hash collisions' bias, a standard feature-hashing refinement.
func (e *Embedder) slot(token string) (int, float32) {
	h := fnv.New64a()
	h.Write([]byte(token))
	sum := h.Sum64()

	idx := int(sum % uint64(e.dims))
	sign := float32(1)
	if (sum>>63)&1 == 1 {
		sign = -1
	}
	return idx, sign
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
