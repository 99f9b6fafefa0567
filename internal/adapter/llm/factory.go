package llm

import (
	"log/slog"
	"strings"
	"time"
)

const (
	// EnvGogoMode is the environment variable name for mode selection.
	EnvGogoMode = "GOGO_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewLLMClient creates an LLM client for mode. ModeMock returns a MockClient;
// any other value returns a real Client.
func NewLLMClient(mode, baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) LLMClient {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.EqualFold(mode, ModeMock) {
		logger.Info("mock mode detected, using mock LLM client", "mode", mode)
		return NewMockClient()
	}
	logger.Info("using LLM endpoint", "base_url", baseURL, "timeout", timeout)
	return NewClient(baseURL, apiKey, timeout)
}
