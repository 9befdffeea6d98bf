// Package document orchestrates the ingestion pipeline: register the upload,
// parse it into units, split into chunks, and commit them to the vector index.
package document

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/stackmint/docqa/internal/domain"
	"github.com/stackmint/docqa/internal/metrics"
)

// Service handles document ingestion, deletion, and listing.
type Service struct {
	registry Registry
	index    Index
	splitter Splitter
	load     LoadFunc
	logger   *zap.Logger
}

// New creates a document service.
func New(registry Registry, index Index, splitter Splitter, load LoadFunc, logger *zap.Logger) *Service {
	return &Service{
		registry: registry,
		index:    index,
		splitter: splitter,
		load:     load,
		logger:   logger,
	}
}

// Ingest registers and indexes one uploaded file. The registry row is created
// first so chunks carry its id; if parsing or indexing fails the row is rolled
// back and nothing from the document stays retrievable.
func (s *Service) Ingest(ctx context.Context, path, filename string) (int64, int, error) {
	format := strings.ToLower(filepath.Ext(filename))

	docID, err := s.registry.InsertDocument(ctx, filename)
	if err != nil {
		metrics.DocumentsIngestedTotal.WithLabelValues(format, "error").Inc()
		return 0, 0, fmt.Errorf("register document: %w", err)
	}

	chunkCount, err := s.indexFile(ctx, path, docID)
	if err != nil {
		s.rollback(ctx, docID)
		metrics.DocumentsIngestedTotal.WithLabelValues(format, "error").Inc()
		return 0, 0, err
	}

	metrics.DocumentsIngestedTotal.WithLabelValues(format, "success").Inc()
	metrics.ChunksIndexedTotal.Add(float64(chunkCount))
	metrics.IndexRecords.Set(float64(s.index.Len()))

	s.logger.Info("Document ingested",
		zap.Int64("document_id", docID),
		zap.String("filename", filename),
		zap.Int("chunks", chunkCount))

	return docID, chunkCount, nil
}

func (s *Service) indexFile(ctx context.Context, path string, docID int64) (int, error) {
	units, err := s.load(path)
	if err != nil {
		return 0, fmt.Errorf("load document: %w", err)
	}

	chunks := s.splitter.SplitUnits(units, docID)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document produced no chunks: %w", domain.ErrIndexingFailure)
	}

	if err := s.index.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("index document: %w", err)
	}

	return len(chunks), nil
}

// rollback undoes a partial ingest. The index add is atomic, so the vector
// delete is only a safety net; failures here are logged, not returned.
func (s *Service) rollback(ctx context.Context, docID int64) {
	if _, err := s.index.DeleteByDocument(ctx, docID); err != nil {
		s.logger.Error("Failed to clean index after ingest failure",
			zap.Int64("document_id", docID), zap.Error(err))
	}
	if err := s.registry.DeleteDocument(ctx, docID); err != nil {
		s.logger.Error("Failed to roll back document record",
			zap.Int64("document_id", docID), zap.Error(err))
	}
}

// Delete removes a document's chunks from the index and its registry row.
// Deleting an unknown id succeeds with zero chunks removed.
func (s *Service) Delete(ctx context.Context, docID int64) (int, error) {
	info, err := s.registry.GetDocument(ctx, docID)
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		// Never registered (or already deleted). The index sweep below still
		// runs so a row lost to a crashed rollback cannot orphan vectors.
	case err != nil:
		return 0, fmt.Errorf("look up document: %w", err)
	}

	removed, err := s.index.DeleteByDocument(ctx, docID)
	if err != nil {
		return 0, fmt.Errorf("delete from index: %w", err)
	}

	if err := s.registry.DeleteDocument(ctx, docID); err != nil {
		return removed, fmt.Errorf("delete document record: %w", err)
	}

	metrics.IndexRecords.Set(float64(s.index.Len()))

	s.logger.Info("Document deleted",
		zap.Int64("document_id", docID),
		zap.String("filename", info.Filename),
		zap.Int("chunks_removed", removed))

	return removed, nil
}

// List returns all registered documents, newest first.
func (s *Service) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	docs, err := s.registry.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}
