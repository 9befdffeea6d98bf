package answer

import (
	"context"

	"github.com/stackmint/docqa/internal/domain"
)

// Retriever returns the chunks most relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]domain.ScoredChunk, error)
}

// Completer generates one chat reply from a system prompt, a context block,
// and the user's question.
type Completer interface {
	Complete(ctx context.Context, model, systemPrompt, contextBlock, question string) (string, error)
	DefaultModel() string
}
