package service

import (
	"context"
	"time"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// RunCheckpointSweeper deletes expired checkpoints until ctx ends.
func (s *Service) RunCheckpointSweeper(ctx context.Context) {
	interval := s.config.CheckpointSweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepExpiredCheckpoints(ctx)
		}
	}
}

// sweepExpiredCheckpoints removes checkpoints past their TTL. A turn whose
// last checkpoint expired unused can no longer resume and is marked aborted.
func (s *Service) sweepExpiredCheckpoints(ctx context.Context) int {
	sweepCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	expired, err := s.store.ListExpiredCheckpoints(sweepCtx, s.clock.Now(), 100)
	if err != nil {
		s.logger.Warn("checkpoint sweep failed", "error", err)
		return 0
	}

	swept := 0
	for _, cp := range expired {
		deleted, err := s.store.DeleteCheckpoint(sweepCtx, cp.Token)
		if err != nil {
			s.logger.Warn("failed to delete expired checkpoint", "token", cp.Token, "error", err)
			continue
		}
		if !deleted {
			continue
		}
		swept++

		if cp.ConsumedAt != nil {
			continue
		}
		s.trace(sweepCtx, cp.TurnID, domain.EventTypeCheckpointExpired, domain.CheckpointPayload{
			Token:     cp.Token,
			Digest:    cp.Digest,
			SizeBytes: cp.SizeBytes,
		})

		turn, err := s.store.GetTurn(sweepCtx, cp.TurnID)
		if err != nil || turn == nil || turn.Status != domain.TurnStateCheckpointing {
			continue
		}
		if err := s.store.UpdateTurnCompleted(sweepCtx, cp.TurnID, domain.TurnStateAborted, turn.ElapsedMs); err != nil {
			s.logger.Warn("failed to mark abandoned turn", "turn_id", cp.TurnID, "error", err)
		}
	}
	if swept > 0 {
		s.logger.Info("swept expired checkpoints", "count", swept)
	}
	return swept
}
