package search

import (
	"context"

	"github.com/stackmint/docqa/internal/domain"
)

// Index is the vector index contract for retrieval.
type Index interface {
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}
