package service

import (
	"encoding/json"

	"github.com/xiaot623/gogo/agentcore/internal/adapter/llm"
	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/tools"
)

// toLLMMessages converts the history. A non-empty partial response is sent
// as a trailing assistant message for the model to continue.
func toLLMMessages(msgs []domain.ChatMessage, partial domain.PartialResponse) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(msgs)+1)
	for _, m := range msgs {
		lm := llm.ChatMessage{
			Role:             m.Role,
			Content:          m.Content,
			ReasoningContent: m.Reasoning,
			Name:             m.Name,
			ToolCallID:       m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			lm.ToolCalls = append(lm.ToolCalls, llm.ToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: llm.ToolCallFunction{Name: tc.Name, Arguments: tc.Arguments},
			})
		}
		out = append(out, lm)
	}
	if !partial.Empty() {
		out = append(out, llm.ChatMessage{
			Role:             domain.RoleAssistant,
			Content:          partial.Content,
			ReasoningContent: partial.Reasoning,
		})
	}
	return out
}

func fromLLMToolCalls(calls []llm.ToolCall) []domain.MessageToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]domain.MessageToolCall, 0, len(calls))
	for _, tc := range calls {
		id := tc.ID
		if id == "" {
			id = domain.NewCallID()
		}
		out = append(out, domain.MessageToolCall{ID: id, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return out
}

// toolMessage is the history entry answering call with res.
func toolMessage(call domain.MessageToolCall, res domain.ToolResult) domain.ChatMessage {
	body, err := json.Marshal(res)
	if err != nil {
		body = []byte(`{"success":false,"error":{"code":"InternalError","message":"unencodable tool result"}}`)
	}
	return domain.ChatMessage{
		Role:       domain.RoleTool,
		Content:    string(body),
		ToolCallID: call.ID,
		Name:       call.Name,
	}
}

func llmTools(reg *tools.Registry) []llm.Tool {
	defs := reg.List()
	out := make([]llm.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        string(def.Name),
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}
