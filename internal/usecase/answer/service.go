// Package answer is the question-answering chain: retrieve relevant chunks,
// assemble the prompt, and ask the model.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stackmint/docqa/internal/domain"
	"github.com/stackmint/docqa/internal/metrics"
)

const systemPrompt = "You are a helpful AI assistant. Use the provided context to answer questions."

// Result is one answered question.
type Result struct {
	Answer string
	Model  string
	// Sources are the chunks the answer was grounded on, best first.
	Sources []domain.ScoredChunk
}

// Service runs the retrieval-augmented answer chain.
type Service struct {
	retriever Retriever
	completer Completer
	logger    *zap.Logger
}

// New creates an answer service.
func New(retriever Retriever, completer Completer, logger *zap.Logger) *Service {
	return &Service{retriever: retriever, completer: completer, logger: logger}
}

// Answer retrieves context for the question and generates a reply with the
// given model (empty model uses the provider default). Retrieval or generation
// failures are wrapped with domain.ErrGenerationFailure.
func (s *Service) Answer(ctx context.Context, question, model string) (Result, error) {
	if model == "" {
		model = s.completer.DefaultModel()
	}

	start := time.Now()

	result, err := s.answer(ctx, question, model)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.AnswersTotal.WithLabelValues(model, status).Inc()
	metrics.AnswerDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	return result, err
}

func (s *Service) answer(ctx context.Context, question, model string) (Result, error) {
	hits, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return Result{}, fmt.Errorf("retrieve context: %w: %w", domain.ErrGenerationFailure, err)
	}

	contextBlock := "Context:\n" + joinChunks(hits)

	s.logger.Debug("Answering question",
		zap.String("model", model),
		zap.Int("context_chunks", len(hits)))

	reply, err := s.completer.Complete(ctx, model, systemPrompt, contextBlock, question)
	if err != nil {
		return Result{}, fmt.Errorf("generate answer: %w: %w", domain.ErrGenerationFailure, err)
	}

	return Result{Answer: reply, Model: model, Sources: hits}, nil
}

// joinChunks concatenates retrieved chunk texts in rank order, separated by
// blank lines. An empty retrieval yields an empty context block.
func joinChunks(hits []domain.ScoredChunk) string {
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Chunk.Text
	}
	return strings.Join(texts, "\n\n")
}
