// Package memindex is the in-memory vector index: embeddings plus chunk
// metadata, brute-force cosine search, and document-scoped deletion. The index
// is process-lifetime state with no persistence across restarts.
package memindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/stackmint/docqa/internal/domain"
)

// DefaultTopK is the number of results returned when the caller passes k <= 0.
const DefaultTopK = 2

// record is the stored unit: an internally assigned id, the embedding vector,
// and the chunk carried alongside for filtering.
type record struct {
	id     string
	seq    uint64
	vector []float32
	chunk  domain.Chunk
}

// Index stores chunks as embedding vectors. All mutation goes through an
// internal lock; searches share a read lock and never observe a torn write.
type Index struct {
	docEmbedder   domain.Embedder
	queryEmbedder domain.Embedder

	mu      sync.RWMutex
	records []record
	dims    int
	nextSeq uint64
}

// New creates an empty index. Dimensionality is fixed by the first committed
// batch and enforced for the rest of the index's lifetime.
func New(docEmbedder, queryEmbedder domain.Embedder) *Index {
	return &Index{
		docEmbedder:   docEmbedder,
		queryEmbedder: queryEmbedder,
	}
}

// Add embeds every chunk and stores the resulting records. Embedding happens
// before the write lock is taken, and the batch commits atomically: on any
// failure nothing attributable to the chunks' document ids is stored.
func (idx *Index) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		result, err := idx.docEmbedder.Embed(ctx, c.Text)
		if err != nil {
			return fmt.Errorf("%w: embed chunk %d: %w", domain.ErrIndexingFailure, i, err)
		}
		if len(result.Embedding) == 0 {
			return fmt.Errorf("%w: empty embedding for chunk %d", domain.ErrIndexingFailure, i)
		}
		vectors[i] = result.Embedding
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	dims := idx.dims
	if dims == 0 {
		dims = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("%w: chunk %d has %d dims, index has %d: %w",
				domain.ErrIndexingFailure, i, len(v), dims, domain.ErrVectorDimMismatch)
		}
	}

	idx.dims = dims
	for i, c := range chunks {
		idx.nextSeq++
		idx.records = append(idx.records, record{
			id:     uuid.New().String(),
			seq:    idx.nextSeq,
			vector: vectors[i],
			chunk:  c,
		})
	}
	return nil
}

// Search embeds the query and returns the k most similar chunks by cosine
// similarity, ties broken by insertion order. k <= 0 falls back to DefaultTopK.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	result, err := idx.queryEmbedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.records) == 0 {
		return nil, nil
	}

	hits := make([]domain.ScoredChunk, 0, len(idx.records))
	for _, r := range idx.records {
		hits = append(hits, domain.ScoredChunk{
			Chunk: r.chunk,
			Score: cosine(result.Embedding, r.vector),
		})
	}

	// Records are in insertion order, so a stable sort keeps ties stable.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// DeleteByDocument removes every record whose chunk belongs to docID and
// returns how many were removed. Zero matches is a no-op success.
func (idx *Index) DeleteByDocument(_ context.Context, docID int64) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	kept := idx.records[:0]
	removed := 0
	for _, r := range idx.records {
		if r.chunk.DocumentID == docID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	// Zero the freed tail so deleted vectors can be collected.
	for i := len(kept); i < len(idx.records); i++ {
		idx.records[i] = record{}
	}
	idx.records = kept
	return removed, nil
}

// Len returns the current number of records.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// Dimensions returns the fixed vector dimensionality, 0 while the index is empty.
func (idx *Index) Dimensions() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dims
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
