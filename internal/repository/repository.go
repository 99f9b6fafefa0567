package repository

import (
	"context"
	"errors"
	"time"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

var (
	// ErrCheckpointNotFound is returned for an unknown continuation token.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	// ErrCheckpointConsumed is returned when a token was already used to resume.
	ErrCheckpointConsumed = errors.New("checkpoint already consumed")
	// ErrCheckpointExpired is returned when a token outlived its TTL.
	ErrCheckpointExpired = errors.New("checkpoint expired")
)

// Store persists turn traces, checkpoints and the tool result ledger.
// Session file state is never stored here.
type Store interface {
	Close() error

	CreateTurn(ctx context.Context, turn *domain.Turn) error
	GetTurn(ctx context.Context, turnID string) (*domain.Turn, error)
	MarkTurnResumed(ctx context.Context, turnID string, status domain.TurnState) error
	UpdateTurnCompleted(ctx context.Context, turnID string, status domain.TurnState, elapsedMs int64) error

	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, turnID string, afterTs int64, types []string, limit int) ([]domain.Event, error)

	SaveCheckpoint(ctx context.Context, cp *domain.CheckpointRecord) error
	GetCheckpoint(ctx context.Context, token string) (*domain.CheckpointRecord, error)
	ConsumeCheckpoint(ctx context.Context, token string, now time.Time) (*domain.CheckpointRecord, error)
	ListExpiredCheckpoints(ctx context.Context, now time.Time, limit int) ([]domain.CheckpointRecord, error)
	DeleteCheckpoint(ctx context.Context, token string) (bool, error)

	SaveToolResult(ctx context.Context, rec *domain.ToolResultRecord) (bool, error)
	GetToolResult(ctx context.Context, callID string) (*domain.ToolResultRecord, error)
	ListToolResults(ctx context.Context, turnID string) ([]domain.ToolResultRecord, error)
}
