// Package domain defines the core domain models for the agent execution core.
package domain

// TurnState represents the lifecycle state of a single agent turn.
type TurnState string

const (
	TurnStateRunning          TurnState = "RUNNING"
	TurnStateApproachingLimit TurnState = "APPROACHING_LIMIT"
	TurnStateCheckpointing    TurnState = "CHECKPOINTING"
	TurnStateResumed          TurnState = "RESUMED"
	TurnStateAborted          TurnState = "ABORTED"
	TurnStateCompleted        TurnState = "COMPLETED"
	TurnStateFailed           TurnState = "FAILED"
)

// Terminal reports whether no further work may happen in this request.
func (s TurnState) Terminal() bool {
	switch s {
	case TurnStateAborted, TurnStateCompleted, TurnStateFailed:
		return true
	}
	return false
}

// EventType represents the type of a turn trace event.
type EventType string

const (
	EventTypeTurnStarted   EventType = "turn_started"
	EventTypeTurnResumed   EventType = "turn_resumed"
	EventTypeTurnRecovered EventType = "turn_recovered"
	EventTypeDelta         EventType = "delta"
	EventTypeToolCall      EventType = "tool_call"
	EventTypeToolResult    EventType = "tool_result"
	EventTypeTimeWarning   EventType = "time_warning"
	EventTypeCheckpoint    EventType = "checkpoint"
	EventTypeTurnDone      EventType = "turn_done"
	EventTypeTurnAborted   EventType = "turn_aborted"
	EventTypeTurnFailed    EventType = "turn_failed"

	// Checkpoint lifecycle events
	EventTypeCheckpointConsumed EventType = "checkpoint_consumed"
	EventTypeCheckpointExpired  EventType = "checkpoint_expired"

	// LLM call events
	EventTypeLLMCallStarted EventType = "llm_call_started"
	EventTypeLLMCallDone    EventType = "llm_call_done"
)

// ToolName identifies one of the closed set of session tools.
type ToolName string

const (
	ToolWriteFile                 ToolName = "write_file"
	ToolReadFile                  ToolName = "read_file"
	ToolEditFile                  ToolName = "edit_file"
	ToolClientReplaceStringInFile ToolName = "client_replace_string_in_file"
	ToolDeleteFile                ToolName = "delete_file"
	ToolDeleteFolder              ToolName = "delete_folder"
	ToolRemovePackage             ToolName = "remove_package"
)

// ToolNames lists every tool the dispatcher accepts.
var ToolNames = []ToolName{
	ToolWriteFile,
	ToolReadFile,
	ToolEditFile,
	ToolClientReplaceStringInFile,
	ToolDeleteFile,
	ToolDeleteFolder,
	ToolRemovePackage,
}

// Known reports whether n is part of the closed tool set.
func (n ToolName) Known() bool {
	for _, name := range ToolNames {
		if name == n {
			return true
		}
	}
	return false
}

// Mutating reports whether the tool changes session state.
func (n ToolName) Mutating() bool {
	return n.Known() && n != ToolReadFile
}

// FileAction describes what a successful tool call did to a file.
type FileAction string

const (
	FileActionCreated         FileAction = "created"
	FileActionUpdated         FileAction = "updated"
	FileActionRead            FileAction = "read"
	FileActionEdited          FileAction = "edited"
	FileActionDeleted         FileAction = "deleted"
	FileActionFolderDeleted   FileAction = "folder_deleted"
	FileActionPackagesRemoved FileAction = "packages_removed"
)

// ErrorCode is the failure taxonomy shared by every tool handler.
type ErrorCode string

const (
	ErrorCodeInvalidArgument  ErrorCode = "InvalidArgument"
	ErrorCodeNotFound         ErrorCode = "NotFound"
	ErrorCodeSessionNotFound  ErrorCode = "SessionNotFound"
	ErrorCodePatternNotFound  ErrorCode = "PatternNotFound"
	ErrorCodeLimitExceeded    ErrorCode = "LimitExceeded"
	ErrorCodePermissionDenied ErrorCode = "PermissionDenied"
	ErrorCodeInternal         ErrorCode = "InternalError"
)
