package continuation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/agentcore/internal/clock"
	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/session"
	"github.com/xiaot623/gogo/agentcore/internal/tools"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func testLimits() Limits {
	return Limits{
		MaxDuration:     100 * time.Second,
		WarnAfter:       60 * time.Second,
		CheckpointAfter: 80 * time.Second,
	}
}

func TestLimitsValidate(t *testing.T) {
	assert.NoError(t, DefaultLimits().Validate())
	assert.NoError(t, testLimits().Validate())

	bad := testLimits()
	bad.CheckpointAfter = bad.MaxDuration
	assert.Error(t, bad.Validate())

	bad = testLimits()
	bad.WarnAfter = 90 * time.Second
	assert.Error(t, bad.Validate())

	assert.Error(t, Limits{}.Validate())
}

func TestDeadlinePhases(t *testing.T) {
	d := NewDeadline(t0, testLimits())
	assert.Equal(t, domain.TurnStateRunning, d.Phase(t0))
	assert.Equal(t, domain.TurnStateRunning, d.Phase(t0.Add(59*time.Second)))
	assert.Equal(t, domain.TurnStateApproachingLimit, d.Phase(t0.Add(60*time.Second)))
	assert.Equal(t, domain.TurnStateCheckpointing, d.Phase(t0.Add(80*time.Second)))
	assert.Equal(t, domain.TurnStateAborted, d.Phase(t0.Add(100*time.Second)))

	assert.Equal(t, 30*time.Second, d.Remaining(t0.Add(70*time.Second)))
	assert.Equal(t, time.Duration(0), d.Remaining(t0.Add(200*time.Second)))
	assert.Equal(t, 5*time.Second, d.UntilCheckpoint(t0.Add(75*time.Second)))
	assert.Equal(t, t0.Add(80*time.Second), d.CheckpointAt())
	assert.Equal(t, t0.Add(100*time.Second), d.HardStop())
}

func TestControllerStateMachine(t *testing.T) {
	clk := clock.NewFake(t0)
	c := New(clk, testLimits(), "turn_1", "proj_1")

	assert.True(t, c.AllowToolCall())
	_, warned := c.TakeWarning()
	assert.False(t, warned)

	clk.Advance(65 * time.Second)
	assert.True(t, c.AllowToolCall())
	assert.Equal(t, domain.TurnStateApproachingLimit, c.State())
	remaining, warned := c.TakeWarning()
	assert.True(t, warned)
	assert.Equal(t, 35*time.Second, remaining)
	_, warned = c.TakeWarning()
	assert.False(t, warned, "warning is emitted once")

	clk.Advance(15 * time.Second)
	assert.False(t, c.AllowToolCall())
	assert.Equal(t, domain.TurnStateCheckpointing, c.State())

	clk.Advance(30 * time.Second)
	assert.Equal(t, domain.TurnStateCheckpointing, c.Tick(), "checkpointing is sticky")
}

func TestControllerAbortsPastHardCeiling(t *testing.T) {
	clk := clock.NewFake(t0)
	c := New(clk, testLimits(), "turn_1", "proj_1")
	clk.Advance(101 * time.Second)

	assert.False(t, c.AllowToolCall())
	assert.Equal(t, domain.TurnStateAborted, c.State())
	_, err := c.Checkpoint(domain.SessionSnapshot{ProjectID: "proj_1"})
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestCheckpointAfterCeilingAborts(t *testing.T) {
	clk := clock.NewFake(t0)
	c := New(clk, testLimits(), "turn_1", "proj_1")
	clk.Advance(79 * time.Second)
	assert.True(t, c.AllowToolCall())

	clk.Advance(30 * time.Second)
	_, err := c.Checkpoint(domain.SessionSnapshot{ProjectID: "proj_1"})
	assert.ErrorIs(t, err, ErrDeadlineExceeded)
	assert.Equal(t, domain.TurnStateAborted, c.State())
}

func TestRecordToolResultDeduplicates(t *testing.T) {
	c := New(clock.NewFake(t0), testLimits(), "turn_1", "proj_1")
	assert.True(t, c.RecordToolResult(domain.ToolResult{CallID: "c1", Success: true}))
	assert.False(t, c.RecordToolResult(domain.ToolResult{CallID: "c1", Success: false}))
	assert.True(t, c.RecordToolResult(domain.ToolResult{CallID: "c2"}))

	res, ok := c.Completed("c1")
	require.True(t, ok)
	assert.True(t, res.Success)
	assert.Len(t, c.ToolResults(), 2)
}

func TestPartialResponseAppends(t *testing.T) {
	c := New(clock.NewFake(t0), testLimits(), "turn_1", "proj_1")
	c.AppendPartial("Hel", "think")
	c.AppendPartial("lo", "ing")
	assert.Equal(t, domain.PartialResponse{Content: "Hello", Reasoning: "thinking"}, c.Partial())
	assert.Equal(t, "Hello", c.TakePartial().Content)
	assert.True(t, c.Partial().Empty())
}

// A turn crosses the checkpoint threshold in the middle of a tool sequence.
// The checkpoint must hold exactly the calls completed before the threshold,
// and resuming must neither lose nor duplicate any of them.
func TestCheckpointMidSequenceAndResume(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(t0)
	store := session.NewStore()
	_, _, err := store.Init("proj_1", &domain.Payload{Files: []domain.PayloadFile{
		{Path: "package.json", Content: `{"dependencies":{"lodash":"1"}}`},
		{Path: "src/old.ts", Content: "old"},
	}})
	require.NoError(t, err)
	dispatcher := tools.NewDispatcher(store)

	calls := []domain.ToolCall{
		{CallID: "c1", Name: domain.ToolWriteFile, Input: map[string]any{"path": "src/app.ts", "content": "export const a = 1;\n"}},
		{CallID: "c2", Name: domain.ToolEditFile, Input: map[string]any{"path": "src/app.ts", "search": "1", "replace": "2"}},
		{CallID: "c3", Name: domain.ToolDeleteFile, Input: map[string]any{"path": "src/old.ts"}},
		{CallID: "c4", Name: domain.ToolRemovePackage, Input: map[string]any{"names": "lodash"}},
	}
	history := []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "refactor"},
		{Role: domain.RoleAssistant, ToolCalls: []domain.MessageToolCall{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}, {ID: "c4"}}},
	}

	c := New(clk, testLimits(), "turn_1", "proj_1")
	c.AppendMessages(history...)
	c.AppendPartial("Working on it", "")

	executed := 0
	for _, call := range calls {
		if !c.AllowToolCall() {
			break
		}
		res := dispatcher.ExecuteCall(ctx, "proj_1", call)
		require.True(t, res.Success, "%s: %+v", call.CallID, res.Error)
		c.RecordToolResult(res)
		executed++
		clk.Advance(30 * time.Second)
	}
	require.Equal(t, 3, executed, "threshold at 80s stops the fourth call")

	snap, err := store.Snapshot("proj_1")
	require.NoError(t, err)
	state, err := c.Checkpoint(snap)
	require.NoError(t, err)
	assert.Regexp(t, `^ct_[0-9a-f-]{36}$`, state.ContinuationToken)
	assert.Equal(t, int64(90_000), state.ElapsedTimeMs)

	var ids []string
	for _, r := range state.ToolResults {
		ids = append(ids, r.CallID)
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids)

	// Round trip through the codec, as a stored checkpoint would.
	codec, err := NewCodec()
	require.NoError(t, err)
	blob, sum, err := codec.Encode(state)
	require.NoError(t, err)
	decoded, err := codec.Decode(blob, sum)
	require.NoError(t, err)
	assert.Equal(t, state, decoded)

	// Resume in a fresh process: nothing but the checkpoint survives.
	fresh := session.NewStore()
	clk2 := clock.NewFake(t0.Add(time.Hour))
	resumed, verification, err := Resume(clk2, testLimits(), decoded, fresh)
	require.NoError(t, err)
	assert.Equal(t, domain.TurnStateResumed, resumed.State())
	assert.Equal(t, history, resumed.Messages())
	assert.Equal(t, state.ToolResults, resumed.ToolResults())
	assert.Equal(t, "Working on it", resumed.Partial().Content)

	restored, err := fresh.Snapshot("proj_1")
	require.NoError(t, err)
	assert.Equal(t, snap, restored)

	sess, err := fresh.Get("proj_1")
	require.NoError(t, err)
	rec, ok := sess.Get("src/app.ts")
	require.True(t, ok)
	assert.Equal(t, "export const a = 2;\n", rec.Content)
	assert.Equal(t, len(rec.Content), rec.Size)

	require.Len(t, verification, 2)
	assert.Equal(t, "src/app.ts", verification[0].Path)
	assert.True(t, verification[0].Exists)
	assert.Equal(t, domain.FileActionEdited, verification[0].LastAction)
	assert.Equal(t, rec.Hash, verification[0].Hash)
	assert.Equal(t, "src/old.ts", verification[1].Path)
	assert.False(t, verification[1].Exists)

	// The pending call runs once; replayed calls are answered from the record.
	pending := domain.PendingToolCalls(resumed.Messages())
	require.Len(t, pending, 4)
	freshDispatcher := tools.NewDispatcher(fresh)
	ran := 0
	for _, call := range calls {
		if _, done := resumed.Completed(call.CallID); done {
			continue
		}
		require.True(t, resumed.AllowToolCall())
		res := freshDispatcher.ExecuteCall(ctx, "proj_1", call)
		require.True(t, res.Success)
		resumed.RecordToolResult(res)
		ran++
	}
	assert.Equal(t, 1, ran)
	assert.Len(t, resumed.ToolResults(), 4)
	assert.Equal(t, 90*time.Second, resumed.Elapsed())
}

func TestResumeNotice(t *testing.T) {
	msg := ResumeNotice("Resumed", []domain.FileVerification{
		{Path: "src/app.ts", Exists: true, Size: 2048, Lines: 10, LastAction: domain.FileActionEdited},
		{Path: "src/old.ts", LastAction: domain.FileActionDeleted},
		{Path: "lib/", Exists: false, LastAction: domain.FileActionFolderDeleted},
	})
	assert.Equal(t, domain.RoleSystem, msg.Role)
	assert.Contains(t, msg.Content, "src/app.ts (2.0 kB, 10 lines, last action: edited)")
	assert.Contains(t, msg.Content, "src/old.ts (missing, last action: deleted)")
	assert.Contains(t, msg.Content, "lib/ (missing")

	empty := ResumeNotice("Recovered", nil)
	assert.Contains(t, empty.Content, "No files were touched")
}

func TestTouchedPathsLastActionWins(t *testing.T) {
	touched := TouchedPaths([]domain.ToolResult{
		{Success: true, Path: "a.ts", Action: domain.FileActionCreated},
		{Success: false, Path: "b.ts"},
		{Success: true, Path: "lib", Action: domain.FileActionFolderDeleted},
		{Success: true, Path: "a.ts", Action: domain.FileActionEdited},
	})
	assert.Equal(t, []Touched{
		{Path: "a.ts", Action: domain.FileActionEdited},
		{Path: "lib/", Action: domain.FileActionFolderDeleted},
	}, touched)
}

func TestCodecDetectsTampering(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)
	state := domain.ContinuationState{
		ContinuationToken: NewToken(),
		TurnID:            "turn_1",
		SessionSnapshot: domain.SessionSnapshot{
			ProjectID: "p",
			FileTree:  []string{"a.txt"},
			Files:     map[string]domain.FileRecord{"a.txt": domain.NewFileRecord("p", "a.txt", "hi")},
		},
	}
	blob, sum, err := codec.Encode(state)
	require.NoError(t, err)

	_, err = codec.Decode(blob, digest([]byte("something else")))
	assert.ErrorIs(t, err, ErrDigestMismatch)

	_, err = codec.Decode([]byte("not zstd"), "")
	assert.Error(t, err)

	again, sum2, err := codec.Encode(state)
	require.NoError(t, err)
	assert.Equal(t, sum, sum2, "encoding is deterministic")
	assert.Equal(t, blob, again)
}
