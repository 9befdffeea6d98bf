package domain

import "time"

// Metadata keys attached to chunks by the loader and ingestion pipeline.
const (
	MetaSource = "source"
	MetaPage   = "page"
)

// DocumentInfo describes an uploaded document as recorded in the registry.
// The registry owns these rows; the index only references the id.
type DocumentInfo struct {
	ID         int64
	Filename   string
	UploadedAt time.Time
}

// Unit is one raw text segment produced by the loader, pre-segmented by the
// source format (e.g. one PDF page).
type Unit struct {
	Text     string
	Metadata map[string]string
}

// Chunk is a bounded span of document text, the unit of embedding and retrieval.
// Chunks are immutable once created.
type Chunk struct {
	Text       string
	DocumentID int64
	Metadata   map[string]string
}

// ScoredChunk is a single retrieval hit.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}
