package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/xiaot623/gogo/agentcore/internal/adapter/llm"
	"github.com/xiaot623/gogo/agentcore/internal/config"
	"github.com/xiaot623/gogo/agentcore/internal/continuation"
	"github.com/xiaot623/gogo/agentcore/internal/policy"
	"github.com/xiaot623/gogo/agentcore/internal/repository"
	"github.com/xiaot623/gogo/agentcore/internal/service"
	"github.com/xiaot623/gogo/agentcore/internal/session"
	"github.com/xiaot623/gogo/agentcore/internal/tools"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *repository.SQLiteStore
	service *service.Service
}

func wireApp(ctx context.Context, configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger(logOut)

	engine, err := newPolicyEngine(ctx, cfg.PolicyFile)
	if err != nil {
		return nil, err
	}

	codec, err := continuation.NewCodec()
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoint codec: %w", err)
	}

	store, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	sessions := session.NewStore()
	dispatcher := tools.NewDispatcher(sessions,
		tools.WithPolicy(engine),
		tools.WithLimits(cfg.ToolLimits()),
		tools.WithLogger(logger),
	)
	llmClient := llm.NewLLMClient(cfg.Mode, cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout, logger)

	svc := service.New(sessions, dispatcher, store, llmClient, codec, cfg, service.WithLogger(logger))
	return &app{cfg: cfg, logger: logger, store: store, service: svc}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func newPolicyEngine(ctx context.Context, path string) (*policy.Engine, error) {
	if path == "" {
		return policy.NewDefaultEngine(ctx)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return policy.NewEngine(ctx, string(content))
}
