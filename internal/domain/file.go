package domain

import (
	"encoding/hex"
	"encoding/json"
	"path"
	"strings"

	"github.com/zeebo/blake3"
)

// FileRecord is one entry of a session's virtual file store. Path is the
// sole identity; Size and Hash are derived from Content on every mutation.
type FileRecord struct {
	Path        string          `json:"path"`
	Name        string          `json:"name"`
	Content     string          `json:"content"`
	FileType    string          `json:"fileType"`
	Size        int             `json:"size"`
	Hash        string          `json:"hash,omitempty"`
	IsDirectory bool            `json:"isDirectory"`
	WorkspaceID string          `json:"workspaceId"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// NewFileRecord builds a file record for content at p.
func NewFileRecord(workspaceID, p, content string) FileRecord {
	rec := FileRecord{
		Path:        p,
		Name:        path.Base(p),
		FileType:    FileTypeFor(p),
		WorkspaceID: workspaceID,
	}
	rec.SetContent(content)
	return rec
}

// NewDirectoryRecord builds a directory record. Directories never carry content.
func NewDirectoryRecord(workspaceID, p string) FileRecord {
	p = strings.TrimSuffix(p, "/")
	return FileRecord{
		Path:        p,
		Name:        path.Base(p),
		FileType:    "directory",
		IsDirectory: true,
		WorkspaceID: workspaceID,
	}
}

// SetContent replaces the content and recomputes the derived fields.
func (f *FileRecord) SetContent(content string) {
	if f.IsDirectory {
		content = ""
	}
	f.Content = content
	f.Size = len(content)
	f.Hash = ContentHash(content)
}

// Lines returns the line count using newline splitting, so "" is one line.
func (f *FileRecord) Lines() int {
	return CountLines(f.Content)
}

// ContentHash returns the hex BLAKE3 digest of content.
func ContentHash(content string) string {
	sum := blake3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// CountLines counts lines the way a newline split does.
func CountLines(content string) int {
	return strings.Count(content, "\n") + 1
}

// FileTypeFor derives a file type from the path extension.
func FileTypeFor(p string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if ext == "" {
		return "text"
	}
	return ext
}

// NormalizePath converts tool-supplied paths into store keys: forward
// slashes, no leading "./" or "/", cleaned. The root normalizes to "".
func NormalizePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	for strings.HasPrefix(p, "./") || strings.HasPrefix(p, "/") {
		p = strings.TrimPrefix(strings.TrimPrefix(p, "./"), "/")
	}
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	return p
}

// NormalizeFolder normalizes a folder path to a trailing-separator prefix.
// The root yields "".
func NormalizeFolder(p string) string {
	p = NormalizePath(p)
	if p == "" {
		return ""
	}
	return p + "/"
}
