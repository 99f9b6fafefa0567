package domain

// PartialResponse is model output that had not been finalized when the turn
// was checkpointed. On resume it is appended to, never re-emitted.
type PartialResponse struct {
	Content   string `json:"content"`
	Reasoning string `json:"reasoning"`
}

// Empty reports whether nothing was buffered.
func (p PartialResponse) Empty() bool {
	return p.Content == "" && p.Reasoning == ""
}

// ContinuationState is a self-sufficient checkpoint of a turn.
type ContinuationState struct {
	ContinuationToken string          `json:"continuationToken"`
	TurnID            string          `json:"turnId"`
	Messages          []ChatMessage   `json:"messages"`
	ToolResults       []ToolResult    `json:"toolResults"`
	SessionSnapshot   SessionSnapshot `json:"sessionSnapshot"`
	PartialResponse   PartialResponse `json:"partialResponse"`
	ElapsedTimeMs     int64           `json:"elapsedTimeMs"`
	Iterations        int             `json:"iterations,omitempty"`
	CreatedAtMs       int64           `json:"createdAt"`
}

// FileVerification describes the current state of a file touched before an
// interruption, so the resumed turn can re-read it before editing again.
type FileVerification struct {
	Path       string     `json:"path"`
	Exists     bool       `json:"exists"`
	Size       int        `json:"size,omitempty"`
	Lines      int        `json:"lines,omitempty"`
	Hash       string     `json:"hash,omitempty"`
	LastAction FileAction `json:"lastAction,omitempty"`
}

// RecoveryPayload is what a client resends after an unannounced disconnect.
type RecoveryPayload struct {
	ProjectID        string          `json:"projectId"`
	TurnID           string          `json:"turnId,omitempty"`
	Messages         []ChatMessage   `json:"messages"`
	PriorToolResults []ToolResult    `json:"priorToolResults"`
	Payload          *Payload        `json:"payload,omitempty"`
	PartialResponse  PartialResponse `json:"partialResponse"`
	ElapsedTimeMs    int64           `json:"elapsedTimeMs,omitempty"`
}

// RecoverySnapshot is the rehydrated turn state produced by recovery.
type RecoverySnapshot struct {
	ProjectID       string             `json:"projectId"`
	TurnID          string             `json:"turnId"`
	Messages        []ChatMessage      `json:"messages"`
	ToolResults     []ToolResult       `json:"toolResults"`
	FilesToVerify   []FileVerification `json:"filesToVerify"`
	SessionSnapshot SessionSnapshot    `json:"sessionSnapshot"`
	PartialResponse PartialResponse    `json:"partialResponse"`
	ElapsedTimeMs   int64              `json:"elapsedTimeMs"`
	RecoveredAtMs   int64              `json:"recoveredAt"`
}
