package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func createTurn(t *testing.T, store *SQLiteStore, turnID string) {
	t.Helper()
	turn := &domain.Turn{
		TurnID:    turnID,
		ProjectID: "p1",
		Status:    domain.TurnStateRunning,
		StartedAt: time.Now(),
	}
	if err := store.CreateTurn(context.Background(), turn); err != nil {
		t.Fatalf("CreateTurn failed: %v", err)
	}
}

func TestSQLiteStoreTurnsAndEvents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	createTurn(t, store, "t1")

	if err := store.UpdateTurnCompleted(ctx, "t1", domain.TurnStateCheckpointing, 270000); err != nil {
		t.Fatalf("UpdateTurnCompleted failed: %v", err)
	}
	if err := store.MarkTurnResumed(ctx, "t1", domain.TurnStateResumed); err != nil {
		t.Fatalf("MarkTurnResumed failed: %v", err)
	}

	got, err := store.GetTurn(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTurn failed: %v", err)
	}
	if got == nil || got.Status != domain.TurnStateResumed || got.Requests != 2 || got.ElapsedMs != 270000 {
		t.Fatalf("unexpected turn: %+v", got)
	}
	if got.EndedAt != nil {
		t.Fatalf("expected resumed turn to have no end time, got %v", got.EndedAt)
	}

	missing, err := store.GetTurn(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil turn, got %+v, %v", missing, err)
	}

	base := time.Now().UnixMilli()
	for i, typ := range []domain.EventType{domain.EventTypeTurnStarted, domain.EventTypeToolResult, domain.EventTypeCheckpoint} {
		event := &domain.Event{
			EventID: domain.NewEventID(),
			TurnID:  "t1",
			Ts:      base + int64(i),
			Type:    typ,
			Payload: json.RawMessage(`{"i":1}`),
		}
		if err := store.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}

	events, err := store.GetEvents(ctx, "t1", 0, nil, 10)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 3 || events[0].Type != domain.EventTypeTurnStarted {
		t.Fatalf("unexpected events: %+v", events)
	}

	events, err = store.GetEvents(ctx, "t1", base, []string{string(domain.EventTypeCheckpoint)}, 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].Type != domain.EventTypeCheckpoint {
		t.Fatalf("unexpected filtered events: %+v", events)
	}
}

func TestSQLiteStoreEventRequiresTurn(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	err := store.CreateEvent(context.Background(), &domain.Event{EventID: "e1", TurnID: "ghost", Ts: 1, Type: domain.EventTypeDelta})
	if err == nil {
		t.Fatalf("expected foreign key failure")
	}
}

func TestSQLiteStoreCheckpointSingleUse(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()
	createTurn(t, store, "t1")

	now := time.Now()
	cp := &domain.CheckpointRecord{
		Token:     "ct_1",
		TurnID:    "t1",
		ProjectID: "p1",
		Blob:      []byte{0x28, 0xb5, 0x2f, 0xfd},
		Digest:    "abc",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := store.SaveCheckpoint(ctx, cp); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	got, err := store.GetCheckpoint(ctx, "ct_1")
	if err != nil {
		t.Fatalf("GetCheckpoint failed: %v", err)
	}
	if got == nil || got.SizeBytes != 4 || got.Digest != "abc" || got.ConsumedAt != nil {
		t.Fatalf("unexpected checkpoint: %+v", got)
	}
	if got.ExpiresAt.UnixMilli() != now.Add(time.Hour).UnixMilli() {
		t.Fatalf("unexpected expiry: %v", got.ExpiresAt)
	}

	consumed, err := store.ConsumeCheckpoint(ctx, "ct_1", now)
	if err != nil {
		t.Fatalf("ConsumeCheckpoint failed: %v", err)
	}
	if consumed.ConsumedAt == nil || string(consumed.Blob) != string(cp.Blob) {
		t.Fatalf("unexpected consumed checkpoint: %+v", consumed)
	}

	if _, err := store.ConsumeCheckpoint(ctx, "ct_1", now); !errors.Is(err, ErrCheckpointConsumed) {
		t.Fatalf("expected ErrCheckpointConsumed, got %v", err)
	}
	if _, err := store.ConsumeCheckpoint(ctx, "ct_missing", now); !errors.Is(err, ErrCheckpointNotFound) {
		t.Fatalf("expected ErrCheckpointNotFound, got %v", err)
	}
}

func TestSQLiteStoreCheckpointExpiry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()
	createTurn(t, store, "t1")

	now := time.Now()
	for _, tc := range []struct {
		token string
		ttl   time.Duration
	}{{"ct_old", -time.Minute}, {"ct_new", time.Hour}} {
		err := store.SaveCheckpoint(ctx, &domain.CheckpointRecord{
			Token: tc.token, TurnID: "t1", ProjectID: "p1",
			Blob: []byte("x"), Digest: "d", CreatedAt: now, ExpiresAt: now.Add(tc.ttl),
		})
		if err != nil {
			t.Fatalf("SaveCheckpoint failed: %v", err)
		}
	}

	if _, err := store.ConsumeCheckpoint(ctx, "ct_old", now); !errors.Is(err, ErrCheckpointExpired) {
		t.Fatalf("expected ErrCheckpointExpired, got %v", err)
	}

	expired, err := store.ListExpiredCheckpoints(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListExpiredCheckpoints failed: %v", err)
	}
	if len(expired) != 1 || expired[0].Token != "ct_old" {
		t.Fatalf("unexpected expired list: %+v", expired)
	}

	deleted, err := store.DeleteCheckpoint(ctx, "ct_old")
	if err != nil || !deleted {
		t.Fatalf("DeleteCheckpoint failed: %v (deleted=%v)", err, deleted)
	}
	deleted, err = store.DeleteCheckpoint(ctx, "ct_old")
	if err != nil || deleted {
		t.Fatalf("expected second delete to be a no-op: %v (deleted=%v)", err, deleted)
	}
}

func TestSQLiteStoreToolResultLedger(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()
	createTurn(t, store, "t1")

	first := &domain.ToolResultRecord{
		CallID:    "c1",
		TurnID:    "t1",
		ProjectID: "p1",
		ToolName:  domain.ToolWriteFile,
		Success:   true,
		Result: domain.ToolResult{
			CallID: "c1", Tool: domain.ToolWriteFile, Success: true,
			Path: "a.ts", Action: domain.FileActionCreated, Stats: &domain.ToolStats{Size: 3},
		},
	}
	inserted, err := store.SaveToolResult(ctx, first)
	if err != nil || !inserted {
		t.Fatalf("SaveToolResult failed: %v (inserted=%v)", err, inserted)
	}

	dup := *first
	dup.Success = false
	inserted, err = store.SaveToolResult(ctx, &dup)
	if err != nil || inserted {
		t.Fatalf("expected duplicate call id to be ignored: %v (inserted=%v)", err, inserted)
	}

	second := &domain.ToolResultRecord{
		CallID: "c2", TurnID: "t1", ProjectID: "p1", ToolName: domain.ToolDeleteFile,
		Result: domain.ToolResult{CallID: "c2", Error: domain.NewToolError(domain.ErrorCodeNotFound, "file not found: b.ts")},
	}
	if _, err := store.SaveToolResult(ctx, second); err != nil {
		t.Fatalf("SaveToolResult failed: %v", err)
	}

	got, err := store.GetToolResult(ctx, "c1")
	if err != nil {
		t.Fatalf("GetToolResult failed: %v", err)
	}
	if got == nil || !got.Success || got.Result.Stats == nil || got.Result.Stats.Size != 3 {
		t.Fatalf("unexpected tool result: %+v", got)
	}

	list, err := store.ListToolResults(ctx, "t1")
	if err != nil {
		t.Fatalf("ListToolResults failed: %v", err)
	}
	if len(list) != 2 || list[0].CallID != "c1" || list[1].Result.Error.Code != domain.ErrorCodeNotFound {
		t.Fatalf("unexpected ledger: %+v", list)
	}

	none, err := store.GetToolResult(ctx, "c9")
	if err != nil || none != nil {
		t.Fatalf("expected nil result, got %+v, %v", none, err)
	}
}
