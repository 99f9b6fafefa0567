// Package service implements turn orchestration: it drives the model through
// tool calls against the in-memory session, checkpoints turns that run out of
// time and resumes or recovers them on later requests.
package service

import (
	"errors"
	"log/slog"

	"github.com/xiaot623/gogo/agentcore/internal/adapter/llm"
	"github.com/xiaot623/gogo/agentcore/internal/clock"
	"github.com/xiaot623/gogo/agentcore/internal/config"
	"github.com/xiaot623/gogo/agentcore/internal/continuation"
	"github.com/xiaot623/gogo/agentcore/internal/recovery"
	"github.com/xiaot623/gogo/agentcore/internal/repository"
	"github.com/xiaot623/gogo/agentcore/internal/session"
	"github.com/xiaot623/gogo/agentcore/internal/tools"
)

// ErrInvalidRequest marks requests rejected before any work started.
var ErrInvalidRequest = errors.New("invalid request")

type Service struct {
	sessions   *session.Store
	dispatcher *tools.Dispatcher
	store      repository.Store
	llmClient  llm.LLMClient
	codec      *continuation.Codec
	recovery   *recovery.Controller
	config     *config.Config
	clock      clock.Clock
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock injects the clock every deadline decision reads.
func WithClock(clk clock.Clock) Option {
	return func(s *Service) { s.clock = clk }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(sessions *session.Store, dispatcher *tools.Dispatcher, store repository.Store, llmClient llm.LLMClient, codec *continuation.Codec, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		sessions:   sessions,
		dispatcher: dispatcher,
		store:      store,
		llmClient:  llmClient,
		codec:      codec,
		config:     cfg,
		clock:      clock.Real(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.recovery = recovery.New(sessions, s.clock, s.logger)
	return s
}

// Tools returns the tool catalog.
func (s *Service) Tools() *tools.Registry {
	return s.dispatcher.Registry()
}
