// Package rag owns the lifecycle of the question-answering stack. The stack
// is built lazily on first use so the process can start (and serve health and
// document listing) before the embedding provider is reachable.
package rag

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/stackmint/docqa/internal/domain"
	"github.com/stackmint/docqa/internal/usecase/answer"
	"github.com/stackmint/docqa/internal/usecase/document"
)

// State is the lifecycle state of the stack.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	// StateFailed is terminal. A failed build is not retried; the process
	// must be restarted after the underlying problem is fixed.
	StateFailed State = "failed"
)

// Services bundles the request-serving services the stack produces.
type Services struct {
	Documents *document.Service
	Answers   *answer.Service
}

// BuildFunc constructs the services. Called at most once.
type BuildFunc func(ctx context.Context) (*Services, error)

// Stack lazily builds and hands out the RAG services.
type Stack struct {
	mu       sync.Mutex
	state    State
	build    BuildFunc
	services *Services
	buildErr error
	logger   *zap.Logger
}

// New creates an unbuilt stack.
func New(build BuildFunc, logger *zap.Logger) *Stack {
	return &Stack{state: StateUninitialized, build: build, logger: logger}
}

// Services returns the built services, building them on first call.
// Concurrent callers during the build block until it finishes. Once a build
// has failed every subsequent call returns the original failure wrapped with
// domain.ErrNotReady.
func (s *Stack) Services(ctx context.Context) (*Services, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateReady:
		return s.services, nil
	case StateFailed:
		return nil, fmt.Errorf("stack initialization failed: %w: %w", domain.ErrNotReady, s.buildErr)
	}

	s.state = StateInitializing
	s.logger.Info("Initializing RAG stack")

	services, err := s.build(ctx)
	if err != nil {
		s.state = StateFailed
		s.buildErr = err
		s.logger.Error("RAG stack initialization failed", zap.Error(err))
		return nil, fmt.Errorf("stack initialization failed: %w: %w", domain.ErrNotReady, err)
	}

	s.state = StateReady
	s.services = services
	s.logger.Info("RAG stack ready")
	return services, nil
}

// State reports the current lifecycle state.
func (s *Stack) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
