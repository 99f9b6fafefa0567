package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/agentcore/internal/adapter/llm"
	"github.com/xiaot623/gogo/agentcore/internal/continuation"
	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// streamModel asks the model for the next assistant message. The call is
// bounded by the checkpoint instant: when the budget runs out mid-stream the
// text received so far stays buffered as the partial response and cut is
// true.
func (s *Service) streamModel(ctx context.Context, ctrl *continuation.Controller, model string, sink EventSink) (msg domain.ChatMessage, cut bool, err error) {
	turnID := ctrl.TurnID()
	budget := ctrl.UntilCheckpoint()
	callCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	req := &llm.ChatCompletionRequest{
		Model:    model,
		Messages: toLLMMessages(ctrl.Messages(), ctrl.Partial()),
		Tools:    llmTools(s.dispatcher.Registry()),
	}

	requestID := "llm_" + uuid.New().String()[:8]
	startTime := s.clock.Now()
	s.trace(ctx, turnID, domain.EventTypeLLMCallStarted, domain.LLMCallStartedPayload{
		RequestID: requestID,
		Model:     model,
		Stream:    true,
		BudgetMs:  budget.Milliseconds(),
	})

	acc := llm.NewAccumulator()
	usage, err := s.llmClient.CreateChatCompletionStream(callCtx, req, func(chunk *llm.StreamChunk) error {
		text, reasoning := acc.Add(chunk)
		if text == "" && reasoning == "" {
			return nil
		}
		ctrl.AppendPartial(text, reasoning)
		s.emit(sink, turnID, domain.TurnEvent{Type: domain.EventTypeDelta, Text: text, Reasoning: reasoning})
		return nil
	})

	done := domain.LLMCallDonePayload{
		RequestID: requestID,
		Model:     model,
		LatencyMs: s.clock.Now().Sub(startTime).Milliseconds(),
		ToolCalls: len(acc.ToolCalls()),
	}
	if acc.Model() != "" {
		done.Model = acc.Model()
	}
	if usage != nil {
		done.PromptTokens = usage.PromptTokens
		done.CompletionTokens = usage.CompletionTokens
		done.TotalTokens = usage.TotalTokens
	}

	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			done.Cut = true
			s.trace(ctx, turnID, domain.EventTypeLLMCallDone, done)
			s.logger.Info("model stream cut at checkpoint threshold",
				"turn_id", turnID, "buffered_bytes", len(ctrl.Partial().Content))
			return domain.ChatMessage{}, true, nil
		}
		done.Error = err.Error()
		s.trace(ctx, turnID, domain.EventTypeLLMCallDone, done)
		return domain.ChatMessage{}, false, fmt.Errorf("failed to stream completion: %w", err)
	}
	s.trace(ctx, turnID, domain.EventTypeLLMCallDone, done)

	partial := ctrl.TakePartial()
	return domain.ChatMessage{
		Role:      domain.RoleAssistant,
		Content:   partial.Content,
		Reasoning: partial.Reasoning,
		ToolCalls: fromLLMToolCalls(acc.ToolCalls()),
	}, false, nil
}

// ListModels returns the models offered by the configured provider.
func (s *Service) ListModels(ctx context.Context) ([]llm.Model, error) {
	models, err := s.llmClient.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return models, nil
}
