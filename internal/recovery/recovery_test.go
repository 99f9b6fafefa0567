package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/agentcore/internal/clock"
	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/session"
)

func TestRecoverRebuildsFromResentPayload(t *testing.T) {
	store := session.NewStore()
	// Stale server state that must not leak into the recovered session.
	_, _, err := store.Init("proj_1", &domain.Payload{Files: []domain.PayloadFile{{Path: "stale.ts", Content: "old"}}})
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(store, clock.NewFake(now), nil)

	in := domain.RecoveryPayload{
		ProjectID: "proj_1",
		TurnID:    "turn_abc",
		Messages:  []domain.ChatMessage{{Role: domain.RoleUser, Content: "go"}},
		Payload: &domain.Payload{Files: []domain.PayloadFile{
			{Path: "src/app.ts", Content: "export const a = 2;\n"},
			{Path: "src/old.ts", Content: "still here on the client"},
			{Path: "lib/x.ts", Content: "x"},
			{Path: "README.md", Content: "# demo"},
		}},
		PriorToolResults: []domain.ToolResult{
			{CallID: "c1", Success: true, Path: "src/app.ts", Action: domain.FileActionCreated},
			{CallID: "c2", Success: true, Path: "src/app.ts", Action: domain.FileActionEdited},
			{CallID: "c2", Success: true, Path: "src/app.ts", Action: domain.FileActionEdited},
			{CallID: "c3", Success: true, Path: "src/old.ts", Action: domain.FileActionDeleted},
			{CallID: "c4", Success: true, Path: "lib/", Action: domain.FileActionFolderDeleted},
			{CallID: "c5", Success: false, Path: "missing.ts"},
		},
		PartialResponse: domain.PartialResponse{Content: "Half"},
		ElapsedTimeMs:   12_000,
	}

	snap, err := c.Recover(in)
	require.NoError(t, err)
	assert.Equal(t, "turn_abc", snap.TurnID)
	assert.Equal(t, now.UnixMilli(), snap.RecoveredAtMs)
	assert.Len(t, snap.ToolResults, 5, "duplicate call ids are dropped")
	assert.Equal(t, "Half", snap.PartialResponse.Content)

	sess, err := store.Get("proj_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "src/app.ts"}, sess.Paths())

	require.Len(t, snap.FilesToVerify, 3)
	assert.Equal(t, domain.FileVerification{
		Path:       "src/app.ts",
		Exists:     true,
		Size:       20,
		Lines:      2,
		Hash:       domain.ContentHash("export const a = 2;\n"),
		LastAction: domain.FileActionEdited,
	}, snap.FilesToVerify[0])
	assert.Equal(t, "src/old.ts", snap.FilesToVerify[1].Path)
	assert.False(t, snap.FilesToVerify[1].Exists)
	assert.Equal(t, "lib/", snap.FilesToVerify[2].Path)
	assert.False(t, snap.FilesToVerify[2].Exists)

	state := State(snap)
	assert.Equal(t, snap.SessionSnapshot, state.SessionSnapshot)
	assert.Equal(t, int64(12_000), state.ElapsedTimeMs)
}

func TestRecoverKeepsWritesAfterDeletion(t *testing.T) {
	store := session.NewStore()
	c := New(store, clock.Real(), nil)

	snap, err := c.Recover(domain.RecoveryPayload{
		ProjectID: "proj_1",
		Payload: &domain.Payload{Files: []domain.PayloadFile{
			{Path: "src/new.ts", Content: "export const fresh = true;\n"},
			{Path: "src/stale.ts", Content: "gone on the server"},
			{Path: "notes.md", Content: "rewritten"},
			{Path: "tmp.txt", Content: "written then deleted"},
		}},
		PriorToolResults: []domain.ToolResult{
			{CallID: "c1", Success: true, Path: "src", Action: domain.FileActionFolderDeleted},
			{CallID: "c2", Success: true, Path: "src/new.ts", Action: domain.FileActionCreated},
			{CallID: "c3", Success: true, Path: "notes.md", Action: domain.FileActionDeleted},
			{CallID: "c4", Success: true, Path: "notes.md", Action: domain.FileActionCreated},
			{CallID: "c5", Success: true, Path: "tmp.txt", Action: domain.FileActionCreated},
			{CallID: "c6", Success: true, Path: "tmp.txt", Action: domain.FileActionDeleted},
		},
	})
	require.NoError(t, err)

	sess, err := store.Get("proj_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.md", "src/new.ts"}, sess.Paths())

	exists := make(map[string]bool)
	for _, v := range snap.FilesToVerify {
		exists[v.Path] = v.Exists
	}
	assert.True(t, exists["src/"])
	assert.True(t, exists["src/new.ts"])
	assert.True(t, exists["notes.md"])
	assert.False(t, exists["tmp.txt"])
}

func TestRecoverAssignsTurnID(t *testing.T) {
	c := New(session.NewStore(), clock.Real(), nil)
	snap, err := c.Recover(domain.RecoveryPayload{ProjectID: "p", Payload: &domain.Payload{}})
	require.NoError(t, err)
	assert.Regexp(t, `^turn_`, snap.TurnID)
	assert.Empty(t, snap.FilesToVerify)
}

func TestRecoverRejectsIncompleteInput(t *testing.T) {
	c := New(session.NewStore(), clock.Real(), nil)
	_, err := c.Recover(domain.RecoveryPayload{Payload: &domain.Payload{}})
	assert.ErrorIs(t, err, session.ErrInvalidProject)

	_, err = c.Recover(domain.RecoveryPayload{ProjectID: "p"})
	assert.ErrorIs(t, err, ErrNoPayload)
}
