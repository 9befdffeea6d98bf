// Package search retrieves the chunks most similar to a query.
package search

import (
	"context"
	"fmt"

	"github.com/stackmint/docqa/internal/domain"
)

// DefaultTopK is the retrieval depth used when the configuration leaves it unset.
const DefaultTopK = 2

// Service is a retriever with a fixed top-k over the vector index.
type Service struct {
	index Index
	topK  int
}

// New creates a retriever. k <= 0 falls back to DefaultTopK.
func New(index Index, k int) *Service {
	if k <= 0 {
		k = DefaultTopK
	}
	return &Service{index: index, topK: k}
}

// Retrieve returns up to the configured top-k chunks ranked by similarity.
// An empty index yields an empty result, not an error.
func (s *Service) Retrieve(ctx context.Context, query string) ([]domain.ScoredChunk, error) {
	hits, err := s.index.Search(ctx, query, s.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return hits, nil
}

// TopK reports the configured retrieval depth.
func (s *Service) TopK() int {
	return s.topK
}
