// Package testsvc builds a fully wired service for transport tests.
package testsvc

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/xiaot623/gogo/agentcore/internal/adapter/llm"
	"github.com/xiaot623/gogo/agentcore/internal/config"
	"github.com/xiaot623/gogo/agentcore/internal/continuation"
	"github.com/xiaot623/gogo/agentcore/internal/policy"
	"github.com/xiaot623/gogo/agentcore/internal/repository"
	"github.com/xiaot623/gogo/agentcore/internal/service"
	"github.com/xiaot623/gogo/agentcore/internal/session"
	"github.com/xiaot623/gogo/agentcore/internal/tools"
	"github.com/xiaot623/gogo/agentcore/tests/helpers"
)

// Fixture exposes the service together with its collaborators.
type Fixture struct {
	Service *service.Service
	Store   *repository.SQLiteStore
	Mock    *llm.MockClient
	Config  *config.Config
}

// Config returns limits generous enough that no test trips a deadline on
// the real clock.
func Config() *config.Config {
	return &config.Config{
		TurnMaxDuration:         5 * time.Minute,
		TurnWarnAfter:           4 * time.Minute,
		TurnCheckpointAfter:     270 * time.Second,
		MaxToolIterations:       10,
		CheckpointTTL:           time.Hour,
		CheckpointSweepInterval: time.Minute,
		ReadMaxLines:            tools.DefaultMaxReadLines,
		ReadMaxBytes:            tools.DefaultMaxReadBytes,
		LLMModel:                "mock-coder",
	}
}

// New wires a service over an in-memory store and a scripted mock model.
func New(t *testing.T, script ...llm.MockResponse) *Fixture {
	t.Helper()

	cfg := Config()
	engine, err := policy.NewDefaultEngine(context.Background())
	if err != nil {
		t.Fatalf("NewDefaultEngine failed: %v", err)
	}
	codec, err := continuation.NewCodec()
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewStore()
	dispatcher := tools.NewDispatcher(sessions, tools.WithPolicy(engine), tools.WithLimits(cfg.ToolLimits()), tools.WithLogger(logger))
	db := helpers.NewTestSQLiteStore(t)
	mock := llm.NewScriptedMockClient(script...)

	svc := service.New(sessions, dispatcher, db, mock, codec, cfg, service.WithLogger(logger))
	return &Fixture{Service: svc, Store: db, Mock: mock, Config: cfg}
}
