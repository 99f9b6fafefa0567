package domain

import (
	"fmt"
	"time"
)

// ToolCall is a single structured request from the agent.
type ToolCall struct {
	Name   ToolName       `json:"name"`
	Input  map[string]any `json:"input"`
	CallID string         `json:"callId"`
}

// ToolResult is the uniform envelope every tool call produces. Success
// discriminates between the success fields and Error/Context.
type ToolResult struct {
	CallID  string   `json:"callId"`
	Tool    ToolName `json:"tool,omitempty"`
	Success bool     `json:"success"`

	Path    string     `json:"path,omitempty"`
	Action  FileAction `json:"action,omitempty"`
	Message string     `json:"message,omitempty"`
	Content string     `json:"content,omitempty"`
	Stats   *ToolStats `json:"stats,omitempty"`

	Error   *ToolError    `json:"error,omitempty"`
	Context *ErrorContext `json:"context,omitempty"`
}

// ToolStats carries the per-tool success statistics.
type ToolStats struct {
	// read_file
	StartLine        int  `json:"startLine,omitempty"`
	EndLine          int  `json:"endLine,omitempty"`
	TotalLinesInFile int  `json:"totalLinesInFile,omitempty"`
	LinesReturned    int  `json:"linesReturned,omitempty"`
	Truncated        bool `json:"truncated,omitempty"`
	ReturnedBytes    int  `json:"returnedBytes,omitempty"`
	FullBytes        int  `json:"fullBytes,omitempty"`

	// write_file / edit_file
	Size          int   `json:"size,omitempty"`
	Replacements  int   `json:"replacements,omitempty"`
	OriginalSize  int   `json:"originalSize,omitempty"`
	NewSize       int   `json:"newSize,omitempty"`
	OriginalLines int   `json:"originalLines,omitempty"`
	NewLines      int   `json:"newLines,omitempty"`
	Positions     []int `json:"positions,omitempty"`

	// delete_folder
	FilesDeleted int `json:"filesDeleted,omitempty"`

	// remove_package
	Removed  []string `json:"removed,omitempty"`
	NotFound []string `json:"notFound,omitempty"`
}

// ToolError is a tagged tool failure.
type ToolError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorContext gives the model enough detail to recover from a failure.
type ErrorContext struct {
	Tool           ToolName `json:"tool,omitempty"`
	Path           string   `json:"path,omitempty"`
	TotalLines     int      `json:"totalLines,omitempty"`
	RequestedLines int      `json:"requestedLines,omitempty"`
	MaxLines       int      `json:"maxLines,omitempty"`
	Suggestion     string   `json:"suggestion,omitempty"`
	Suggestions    []string `json:"suggestions,omitempty"`
}

// NewToolError builds a ToolError.
func NewToolError(code ErrorCode, format string, args ...any) *ToolError {
	return &ToolError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument builds an InvalidArgument error naming the offending field.
func InvalidArgument(field, format string, args ...any) *ToolError {
	return &ToolError{Code: ErrorCodeInvalidArgument, Message: fmt.Sprintf(format, args...), Field: field}
}

// Failed builds a failure result.
func Failed(callID string, tool ToolName, err *ToolError, ctx *ErrorContext) ToolResult {
	if err == nil {
		err = NewToolError(ErrorCodeInternal, "unknown failure")
	}
	return ToolResult{
		CallID:  callID,
		Tool:    tool,
		Success: false,
		Error:   err,
		Context: ctx,
	}
}

// TouchedPath returns the path a successful result affected, if any.
// Folder deletions return the folder prefix with its trailing separator.
func (r ToolResult) TouchedPath() (string, bool) {
	if !r.Success || r.Path == "" {
		return "", false
	}
	if r.Action == FileActionFolderDeleted {
		return NormalizeFolder(r.Path), true
	}
	return NormalizePath(r.Path), true
}

// ToolResultRecord is a persisted tool result keyed by call id.
type ToolResultRecord struct {
	CallID    string     `json:"call_id"`
	TurnID    string     `json:"turn_id"`
	ProjectID string     `json:"project_id"`
	ToolName  ToolName   `json:"tool_name"`
	Success   bool       `json:"success"`
	Result    ToolResult `json:"result"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToolListItem represents a tool in the catalog response.
type ToolListItem struct {
	Name        ToolName       `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
	Mutating    bool           `json:"mutating"`
}

// ListToolsResponse represents the response for listing tools.
type ListToolsResponse struct {
	Tools []ToolListItem `json:"tools"`
}

// ExecuteToolRequest is the HTTP body for executing a single tool.
type ExecuteToolRequest struct {
	CallID string         `json:"call_id,omitempty"`
	TurnID string         `json:"turn_id,omitempty"`
	Input  map[string]any `json:"input"`
}
