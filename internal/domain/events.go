package domain

// TurnStartedPayload is the payload for turn_started, turn_resumed and
// turn_recovered events.
type TurnStartedPayload struct {
	ProjectID     string             `json:"project_id"`
	Messages      int                `json:"messages"`
	ToolResults   int                `json:"tool_results,omitempty"`
	ElapsedTimeMs int64              `json:"elapsed_time_ms,omitempty"`
	Verification  []FileVerification `json:"verification,omitempty"`
}

// LLMCallStartedPayload is the payload for llm_call_started events.
type LLMCallStartedPayload struct {
	RequestID string `json:"request_id"`
	Model     string `json:"model"`
	Stream    bool   `json:"stream"`
	BudgetMs  int64  `json:"budget_ms"`
}

// LLMCallDonePayload is the payload for llm_call_done events.
type LLMCallDonePayload struct {
	RequestID        string `json:"request_id"`
	Model            string `json:"model"`
	LatencyMs        int64  `json:"latency_ms"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
	TotalTokens      int    `json:"total_tokens,omitempty"`
	ToolCalls        int    `json:"tool_calls,omitempty"`
	Cut              bool   `json:"cut,omitempty"`
	Error            string `json:"error,omitempty"`
}

// TimeWarningPayload is the payload for time_warning events.
type TimeWarningPayload struct {
	RemainingMs int64 `json:"remaining_ms"`
	ElapsedMs   int64 `json:"elapsed_ms"`
}

// CheckpointPayload is the payload for checkpoint lifecycle events.
type CheckpointPayload struct {
	Token         string `json:"token"`
	Digest        string `json:"digest,omitempty"`
	SizeBytes     int    `json:"size_bytes,omitempty"`
	ElapsedTimeMs int64  `json:"elapsed_time_ms,omitempty"`
	Pending       int    `json:"pending_tool_calls,omitempty"`
}

// TurnDonePayload is the payload for turn_done, turn_failed and
// turn_aborted events.
type TurnDonePayload struct {
	State         TurnState `json:"state"`
	Iterations    int       `json:"iterations"`
	ToolResults   int       `json:"tool_results"`
	ElapsedTimeMs int64     `json:"elapsed_time_ms"`
	FinalMessage  string    `json:"final_message,omitempty"`
	Error         string    `json:"error,omitempty"`
}
