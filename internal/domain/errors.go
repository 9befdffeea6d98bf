package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat signals a file extension the loader cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrIndexingFailure signals an embedding or storage failure during add.
	ErrIndexingFailure = errors.New("indexing failure")
	// ErrGenerationFailure signals a retrieval or model-call failure during answer.
	ErrGenerationFailure = errors.New("generation failure")
	// ErrDocumentNotFound signals a missing document record.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrNotReady signals that the retrieval/generation stack is not initialized.
	ErrNotReady = errors.New("rag stack not ready")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrModelProviderError signals a chat-completion provider failure.
	ErrModelProviderError = errors.New("model provider error")
)

// UnsupportedFormatError wraps ErrUnsupportedFormat with the rejected extension.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedFormat.Error(), e.Ext)
}

func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// NewUnsupportedFormat creates an unsupported format error for an extension.
func NewUnsupportedFormat(ext string) error {
	return &UnsupportedFormatError{Ext: ext}
}
