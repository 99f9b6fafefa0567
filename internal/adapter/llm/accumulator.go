package llm

import (
	"sort"
	"strings"
)

// Accumulator assembles streamed deltas into a complete assistant message.
type Accumulator struct {
	content      strings.Builder
	reasoning    strings.Builder
	calls        map[int]*ToolCall
	finishReason string
	model        string
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{calls: make(map[int]*ToolCall)}
}

// Add folds one chunk in and returns the text and reasoning it carried.
func (a *Accumulator) Add(chunk *StreamChunk) (text, reasoning string) {
	if a.model == "" {
		a.model = chunk.Model
	}
	for _, choice := range chunk.Choices {
		if choice.Index != 0 {
			continue
		}
		if choice.FinishReason != "" {
			a.finishReason = choice.FinishReason
		}
		delta := choice.Delta
		if delta == nil {
			delta = choice.Message
		}
		if delta == nil {
			continue
		}
		a.content.WriteString(delta.Content)
		a.reasoning.WriteString(delta.ReasoningContent)
		text += delta.Content
		reasoning += delta.ReasoningContent

		for i, tc := range delta.ToolCalls {
			idx := i
			if tc.Index != nil {
				idx = *tc.Index
			}
			call, ok := a.calls[idx]
			if !ok {
				call = &ToolCall{Type: "function"}
				a.calls[idx] = call
			}
			if tc.ID != "" {
				call.ID = tc.ID
			}
			if tc.Function.Name != "" {
				call.Function.Name = tc.Function.Name
			}
			call.Function.Arguments += tc.Function.Arguments
		}
	}
	return text, reasoning
}

// Content returns the text so far.
func (a *Accumulator) Content() string { return a.content.String() }

// Reasoning returns the reasoning so far.
func (a *Accumulator) Reasoning() string { return a.reasoning.String() }

// FinishReason returns the finish reason reported by the stream, if any.
func (a *Accumulator) FinishReason() string { return a.finishReason }

// Model returns the model that produced the stream.
func (a *Accumulator) Model() string { return a.model }

// ToolCalls returns the assembled calls ordered by stream index.
func (a *Accumulator) ToolCalls() []ToolCall {
	indexes := make([]int, 0, len(a.calls))
	for idx := range a.calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	out := make([]ToolCall, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, *a.calls[idx])
	}
	return out
}
