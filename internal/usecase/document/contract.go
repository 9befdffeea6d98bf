package document

import (
	"context"

	"github.com/stackmint/docqa/internal/domain"
)

// Registry is the relational document registry.
type Registry interface {
	InsertDocument(ctx context.Context, filename string) (int64, error)
	GetDocument(ctx context.Context, id int64) (domain.DocumentInfo, error)
	DeleteDocument(ctx context.Context, id int64) error
	ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error)
}

// Index is the vector index contract for ingestion and deletion.
type Index interface {
	Add(ctx context.Context, chunks []domain.Chunk) error
	DeleteByDocument(ctx context.Context, docID int64) (int, error)
	Len() int
}

// Splitter turns loaded units into index-ready chunks.
type Splitter interface {
	SplitUnits(units []domain.Unit, docID int64) []domain.Chunk
}

// LoadFunc parses a file into text units.
type LoadFunc func(path string) ([]domain.Unit, error)
