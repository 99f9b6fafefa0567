package domain

import (
	"encoding/json"
	"time"
)

// Turn is the persisted record of one logical agent turn. A turn may span
// several requests through checkpoints.
type Turn struct {
	TurnID    string     `json:"turn_id"`
	ProjectID string     `json:"project_id"`
	Status    TurnState  `json:"status"`
	Requests  int        `json:"requests"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	ElapsedMs int64      `json:"elapsed_ms"`
}

// Event represents a trace event for replay.
type Event struct {
	EventID string          `json:"event_id"`
	TurnID  string          `json:"turn_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CheckpointRecord is the stored form of a ContinuationState.
type CheckpointRecord struct {
	Token      string     `json:"token"`
	TurnID     string     `json:"turn_id"`
	ProjectID  string     `json:"project_id"`
	Blob       []byte     `json:"-"`
	Digest     string     `json:"digest"`
	SizeBytes  int        `json:"size_bytes"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// TurnRequest starts, resumes or recovers a turn. At most one of
// ContinuationToken, Continuation and Recovery may be set.
type TurnRequest struct {
	ProjectID         string             `json:"project_id"`
	Messages          []ChatMessage      `json:"messages,omitempty"`
	Payload           *Payload           `json:"payload,omitempty"`
	ContinuationToken string             `json:"continuation_token,omitempty"`
	Continuation      *ContinuationState `json:"continuation,omitempty"`
	Recovery          *RecoveryPayload   `json:"recovery,omitempty"`
	Model             string             `json:"model,omitempty"`
}

// TurnResponse is returned when a request finishes, either because the turn
// completed or because it was checkpointed or aborted.
type TurnResponse struct {
	TurnID        string             `json:"turn_id"`
	ProjectID     string             `json:"project_id"`
	State         TurnState          `json:"state"`
	Message       *ChatMessage       `json:"message,omitempty"`
	ToolResults   []ToolResult       `json:"tool_results"`
	Continuation  *ContinuationState `json:"continuation,omitempty"`
	Verification  []FileVerification `json:"verification,omitempty"`
	ElapsedTimeMs int64              `json:"elapsed_time_ms"`
	Error         string             `json:"error,omitempty"`
}

// TurnEvent is streamed to clients while a turn runs.
type TurnEvent struct {
	Type              EventType          `json:"type"`
	Ts                int64              `json:"ts"`
	TurnID            string             `json:"turn_id"`
	Text              string             `json:"text,omitempty"`
	Reasoning         string             `json:"reasoning,omitempty"`
	ToolCall          *ToolCall          `json:"tool_call,omitempty"`
	ToolResult        *ToolResult        `json:"tool_result,omitempty"`
	RemainingMs       int64              `json:"remaining_ms,omitempty"`
	ContinuationToken string             `json:"continuation_token,omitempty"`
	Verification      []FileVerification `json:"verification,omitempty"`
	Response          *TurnResponse      `json:"response,omitempty"`
}
