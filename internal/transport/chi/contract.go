package chi

import (
	"context"

	"github.com/stackmint/docqa/internal/domain"
	"github.com/stackmint/docqa/internal/usecase/health"
	"github.com/stackmint/docqa/internal/usecase/rag"
)

// StackProvider hands out the lazily built question-answering services.
type StackProvider interface {
	Services(ctx context.Context) (*rag.Services, error)
}

// DocumentLister reads the document registry. Separate from the stack so
// listing works before the stack is initialized.
type DocumentLister interface {
	ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error)
}

// ChatLogger records answered questions.
type ChatLogger interface {
	InsertChatLog(ctx context.Context, sessionID, query, answer, model string) error
}

// HealthReporter aggregates component health.
type HealthReporter interface {
	Check(ctx context.Context) health.Report
}
