package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xiaot623/gogo/agentcore/internal/continuation"
	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/repository"
)

// mapCheckpointError keeps the repository sentinels visible to callers and
// wraps everything else.
func mapCheckpointError(err error) error {
	switch {
	case errors.Is(err, repository.ErrCheckpointNotFound),
		errors.Is(err, repository.ErrCheckpointConsumed),
		errors.Is(err, repository.ErrCheckpointExpired):
		return err
	}
	return fmt.Errorf("failed to load checkpoint: %w", err)
}

// consumeCheckpoint spends token and decodes the stored state.
func (s *Service) consumeCheckpoint(ctx context.Context, token string) (domain.ContinuationState, error) {
	cp, err := s.store.ConsumeCheckpoint(ctx, token, s.clock.Now())
	if err != nil {
		return domain.ContinuationState{}, mapCheckpointError(err)
	}
	state, err := s.codec.Decode(cp.Blob, cp.Digest)
	if err != nil {
		return domain.ContinuationState{}, fmt.Errorf("failed to decode checkpoint %s: %w", token, err)
	}
	s.trace(ctx, cp.TurnID, domain.EventTypeCheckpointConsumed, domain.CheckpointPayload{
		Token:         token,
		Digest:        cp.Digest,
		SizeBytes:     cp.SizeBytes,
		ElapsedTimeMs: state.ElapsedTimeMs,
	})
	return state, nil
}

// checkpoint freezes the turn and stores the encoded state. The state is
// returned inline as well, so a failed write only costs the token path.
func (s *Service) checkpoint(ctx context.Context, run *turnRun, sink EventSink) *domain.TurnResponse {
	ctrl := run.ctrl
	turnID := ctrl.TurnID()
	if ctrl.Tick() == domain.TurnStateAborted {
		return s.abort(ctx, run, continuation.ErrDeadlineExceeded, sink)
	}

	snap, err := s.sessions.Snapshot(ctrl.ProjectID())
	if err != nil {
		return s.fail(ctx, run, fmt.Errorf("failed to snapshot session: %w", err), sink)
	}
	state, err := ctrl.Checkpoint(snap)
	if err != nil {
		if errors.Is(err, continuation.ErrDeadlineExceeded) {
			return s.abort(ctx, run, err, sink)
		}
		return s.fail(ctx, run, err, sink)
	}

	payload := domain.CheckpointPayload{
		Token:         state.ContinuationToken,
		ElapsedTimeMs: state.ElapsedTimeMs,
		Pending:       len(domain.PendingToolCalls(state.Messages)),
	}
	blob, digest, err := s.codec.Encode(state)
	if err != nil {
		s.logger.Warn("failed to encode checkpoint", "turn_id", turnID, "error", err)
	} else {
		now := s.clock.Now()
		rec := &domain.CheckpointRecord{
			Token:     state.ContinuationToken,
			TurnID:    turnID,
			ProjectID: ctrl.ProjectID(),
			Blob:      blob,
			Digest:    digest,
			SizeBytes: len(blob),
			CreatedAt: now,
			ExpiresAt: now.Add(s.config.CheckpointTTL),
		}
		if err := s.store.SaveCheckpoint(ctx, rec); err != nil {
			s.logger.Warn("failed to save checkpoint", "turn_id", turnID, "token", rec.Token, "error", err)
		} else {
			payload.Digest = digest
			payload.SizeBytes = len(blob)
		}
	}

	if err := s.store.UpdateTurnCompleted(ctx, turnID, domain.TurnStateCheckpointing, state.ElapsedTimeMs); err != nil {
		s.logger.Warn("failed to update turn status", "turn_id", turnID, "error", err)
	}
	s.trace(ctx, turnID, domain.EventTypeCheckpoint, payload)
	s.emit(sink, turnID, domain.TurnEvent{Type: domain.EventTypeCheckpoint, ContinuationToken: state.ContinuationToken})
	s.logger.Info("turn checkpointed", "turn_id", turnID, "token", state.ContinuationToken,
		"elapsed_ms", state.ElapsedTimeMs, "pending_tool_calls", payload.Pending)

	return &domain.TurnResponse{
		TurnID:        turnID,
		ProjectID:     ctrl.ProjectID(),
		State:         domain.TurnStateCheckpointing,
		ToolResults:   ctrl.ToolResults(),
		Continuation:  &state,
		ElapsedTimeMs: state.ElapsedTimeMs,
	}
}

// GetCheckpoint returns checkpoint metadata, or nil when unknown.
func (s *Service) GetCheckpoint(ctx context.Context, token string) (*domain.CheckpointRecord, error) {
	cp, err := s.store.GetCheckpoint(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return cp, nil
}

// InspectCheckpoint decodes a stored checkpoint without consuming it.
func (s *Service) InspectCheckpoint(ctx context.Context, token string) (*domain.CheckpointRecord, domain.ContinuationState, error) {
	cp, err := s.GetCheckpoint(ctx, token)
	if err != nil {
		return nil, domain.ContinuationState{}, err
	}
	if cp == nil {
		return nil, domain.ContinuationState{}, repository.ErrCheckpointNotFound
	}
	state, err := s.codec.Decode(cp.Blob, cp.Digest)
	if err != nil {
		return cp, domain.ContinuationState{}, fmt.Errorf("failed to decode checkpoint %s: %w", token, err)
	}
	return cp, state, nil
}
