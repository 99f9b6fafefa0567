package domain

import "encoding/json"

// PayloadFile is one file of the decoded project payload.
type PayloadFile struct {
	Path        string          `json:"path"`
	Content     string          `json:"content"`
	Size        int             `json:"size,omitempty"`
	Type        string          `json:"type,omitempty"`
	IsDirectory bool            `json:"isDirectory,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// Payload is the decoded project handed over by the wire-codec layer.
type Payload struct {
	Files    []PayloadFile   `json:"files"`
	FileTree []string        `json:"fileTree,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// SessionSnapshot is a deep copy of a session's file state.
type SessionSnapshot struct {
	ProjectID string                `json:"projectId"`
	FileTree  []string              `json:"fileTree"`
	Files     map[string]FileRecord `json:"files"`
}

// SessionSummary is the lightweight view returned by the session API.
type SessionSummary struct {
	ProjectID  string   `json:"project_id"`
	FileCount  int      `json:"file_count"`
	TotalBytes int      `json:"total_bytes"`
	FileTree   []string `json:"file_tree"`
	Created    bool     `json:"created"`
}

// InitSessionRequest is the HTTP body for seeding a session.
type InitSessionRequest struct {
	Payload *Payload `json:"payload"`
	Replace bool     `json:"replace,omitempty"`
}
