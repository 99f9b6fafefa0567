package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrScriptExhausted is returned when a scripted mock has no responses left.
var ErrScriptExhausted = errors.New("mock script exhausted")

// MockResponse is one scripted assistant reply.
type MockResponse struct {
	Content   string
	Reasoning string
	ToolCalls []ToolCall
	// BeforeStream runs when the request arrives, before any chunk is sent.
	BeforeStream func()
	// Hang keeps the stream open after the content until ctx ends.
	Hang bool
	Err  error
}

// MockClient is a mock implementation of LLMClient. Without a script it
// echoes the last user message; with one it replays the queued responses in
// order.
type MockClient struct {
	mu       sync.Mutex
	script   []MockResponse
	scripted bool
	requests []ChatCompletionRequest
}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// NewScriptedMockClient creates a mock that replays responses in order.
func NewScriptedMockClient(responses ...MockResponse) *MockClient {
	return &MockClient{script: responses, scripted: true}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// Enqueue appends scripted responses.
func (m *MockClient) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted = true
	m.script = append(m.script, responses...)
}

// Requests returns copies of the requests received so far.
func (m *MockClient) Requests() []ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatCompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockClient) next(req *ChatCompletionRequest) (MockResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	cp.Messages = append([]ChatMessage(nil), req.Messages...)
	m.requests = append(m.requests, cp)

	if !m.scripted {
		return MockResponse{Content: generateMockResponse(req)}, nil
	}
	if len(m.script) == 0 {
		return MockResponse{}, ErrScriptExhausted
	}
	resp := m.script[0]
	m.script = m.script[1:]
	return resp, nil
}

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	resp, err := m.next(req)
	if err != nil {
		return nil, err
	}
	if resp.BeforeStream != nil {
		resp.BeforeStream()
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	finish := "stop"
	if len(resp.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: &ChatMessage{
					Role:             "assistant",
					Content:          resp.Content,
					ReasoningContent: resp.Reasoning,
					ToolCalls:        resp.ToolCalls,
				},
				FinishReason: finish,
			},
		},
		Usage: usageFor(req, resp.Content),
	}, nil
}

// CreateChatCompletionStream simulates a streaming response. Content is sent
// in small chunks, then each tool call as a single indexed delta.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	resp, err := m.next(req)
	if err != nil {
		return nil, err
	}
	if resp.BeforeStream != nil {
		resp.BeforeStream()
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	id := fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano())
	created := time.Now().Unix()
	send := func(delta *ChatMessage, finish string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		return callback(&StreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []Choice{{Index: 0, Delta: delta, FinishReason: finish}},
		})
	}

	if resp.Reasoning != "" {
		if err := send(&ChatMessage{Role: "assistant", ReasoningContent: resp.Reasoning}, ""); err != nil {
			return nil, err
		}
	}
	for _, chunk := range splitIntoChunks(resp.Content, 10) {
		if err := send(&ChatMessage{Role: "assistant", Content: chunk}, ""); err != nil {
			return nil, err
		}
	}
	for i, tc := range resp.ToolCalls {
		idx := i
		tc.Index = &idx
		if err := send(&ChatMessage{Role: "assistant", ToolCalls: []ToolCall{tc}}, ""); err != nil {
			return nil, err
		}
	}

	if resp.Hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	finish := "stop"
	if len(resp.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	if err := send(&ChatMessage{}, finish); err != nil {
		return nil, err
	}
	return usageFor(req, resp.Content), nil
}

// ListModels returns a list of mock models.
func (m *MockClient) ListModels(ctx context.Context) ([]Model, error) {
	return []Model{
		{
			ID:      "mock-coder",
			Object:  "model",
			Created: time.Now().Unix(),
			OwnedBy: "mock",
		},
	}, nil
}

// generateMockResponse echoes the last user message.
func generateMockResponse(req *ChatCompletionRequest) string {
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

func usageFor(req *ChatCompletionRequest, content string) *Usage {
	prompt := 0
	for _, msg := range req.Messages {
		prompt += len(msg.Content) / 4
	}
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: len(content) / 4,
		TotalTokens:      prompt + len(content)/4,
	}
}

// splitIntoChunks splits a string into chunks of approximately the given size.
func splitIntoChunks(s string, chunkSize int) []string {
	var chunks []string
	for i := 0; i < len(s); i += chunkSize {
		end := i + chunkSize
		if end > len(s) {
			end = len(s)
		}
		chunks = append(chunks, s[i:end])
	}
	return chunks
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
