package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"src/app.ts":        "src/app.ts",
		"./src/app.ts":      "src/app.ts",
		"/src/app.ts":       "src/app.ts",
		"src\\lib\\util.ts": "src/lib/util.ts",
		"src//a/../b.ts":    "src/b.ts",
		"/":                 "",
		".":                 "",
		"  ":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePath(in), "input %q", in)
	}
}

func TestNormalizeFolder(t *testing.T) {
	assert.Equal(t, "src/", NormalizeFolder("src"))
	assert.Equal(t, "src/", NormalizeFolder("./src/"))
	assert.Equal(t, "", NormalizeFolder("/"))
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 1, CountLines(""))
	assert.Equal(t, 1, CountLines("one"))
	assert.Equal(t, 2, CountLines("one\n"))
	assert.Equal(t, 3, CountLines("a\nb\nc"))
}

func TestFileRecordSetContent(t *testing.T) {
	rec := NewFileRecord("p1", "src/app.ts", "hello")
	assert.Equal(t, "app.ts", rec.Name)
	assert.Equal(t, "ts", rec.FileType)
	assert.Equal(t, 5, rec.Size)
	assert.Equal(t, ContentHash("hello"), rec.Hash)

	before := rec.Hash
	rec.SetContent("héllo")
	assert.Equal(t, 6, rec.Size)
	assert.NotEqual(t, before, rec.Hash)
}

func TestDirectoryRecordHasNoContent(t *testing.T) {
	rec := NewDirectoryRecord("p1", "src/components/")
	assert.Equal(t, "src/components", rec.Path)
	assert.True(t, rec.IsDirectory)

	rec.SetContent("ignored")
	assert.Equal(t, "", rec.Content)
	assert.Equal(t, 0, rec.Size)
}

func TestFileTypeFor(t *testing.T) {
	assert.Equal(t, "json", FileTypeFor("package.json"))
	assert.Equal(t, "tsx", FileTypeFor("src/App.TSX"))
	assert.Equal(t, "text", FileTypeFor("Makefile"))
}

func TestPendingToolCalls(t *testing.T) {
	msgs := []ChatMessage{
		{Role: RoleUser, Content: "do it"},
		{Role: RoleAssistant, ToolCalls: []MessageToolCall{
			{ID: "c1", Name: "write_file"},
			{ID: "c2", Name: "read_file"},
			{ID: "c3", Name: "delete_file"},
		}},
		{Role: RoleTool, ToolCallID: "c1", Content: "{}"},
	}
	pending := PendingToolCalls(msgs)
	if assert.Len(t, pending, 2) {
		assert.Equal(t, "c2", pending[0].ID)
		assert.Equal(t, "c3", pending[1].ID)
	}

	assert.Empty(t, PendingToolCalls([]ChatMessage{{Role: RoleUser, Content: "hi"}}))
	assert.Empty(t, PendingToolCalls([]ChatMessage{{Role: RoleAssistant, Content: "done"}}))
}

func TestToolResultTouchedPath(t *testing.T) {
	p, ok := ToolResult{Success: true, Path: "./src/a.ts", Action: FileActionEdited}.TouchedPath()
	assert.True(t, ok)
	assert.Equal(t, "src/a.ts", p)

	p, ok = ToolResult{Success: true, Path: "src", Action: FileActionFolderDeleted}.TouchedPath()
	assert.True(t, ok)
	assert.Equal(t, "src/", p)

	_, ok = ToolResult{Success: false, Path: "src/a.ts"}.TouchedPath()
	assert.False(t, ok)
}

func TestToolNames(t *testing.T) {
	assert.True(t, ToolEditFile.Known())
	assert.False(t, ToolName("shell").Known())
	assert.True(t, ToolDeleteFolder.Mutating())
	assert.False(t, ToolReadFile.Mutating())
	assert.True(t, TurnStateCompleted.Terminal())
	assert.False(t, TurnStateApproachingLimit.Terminal())
}
