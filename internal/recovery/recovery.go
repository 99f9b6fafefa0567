// Package recovery rebuilds a turn after the client dropped before any
// checkpoint was produced. It trusts only what the client resends.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xiaot623/gogo/agentcore/internal/clock"
	"github.com/xiaot623/gogo/agentcore/internal/continuation"
	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/session"
)

// ErrNoPayload is returned when the client resent no files.
var ErrNoPayload = errors.New("recovery payload carries no files")

// Controller rehydrates sessions from recovery payloads.
type Controller struct {
	store  *session.Store
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a recovery controller.
func New(store *session.Store, clk clock.Clock, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{store: store, clock: clk, logger: logger}
}

// Recover replaces the project's session with the resent payload, replays
// the deletions recorded in the prior results on top of it, and flags every
// touched file for re-verification. Any server-side session for the project
// is discarded: it may be older or newer than what the client saw.
func (c *Controller) Recover(in domain.RecoveryPayload) (domain.RecoverySnapshot, error) {
	if strings.TrimSpace(in.ProjectID) == "" {
		return domain.RecoverySnapshot{}, session.ErrInvalidProject
	}
	if in.Payload == nil {
		return domain.RecoverySnapshot{}, ErrNoPayload
	}

	sess, err := c.store.Replace(in.ProjectID, in.Payload)
	if err != nil {
		return domain.RecoverySnapshot{}, fmt.Errorf("failed to rebuild session: %w", err)
	}

	results := dedupe(in.PriorToolResults)
	c.replayDeletions(in.ProjectID, sess, results)

	turnID := in.TurnID
	if turnID == "" {
		turnID = domain.NewTurnID()
	}
	snap := domain.RecoverySnapshot{
		ProjectID:       in.ProjectID,
		TurnID:          turnID,
		Messages:        in.Messages,
		ToolResults:     results,
		FilesToVerify:   continuation.VerifyTouched(sess, results),
		SessionSnapshot: sess.Snapshot(),
		PartialResponse: in.PartialResponse,
		ElapsedTimeMs:   in.ElapsedTimeMs,
		RecoveredAtMs:   c.clock.Now().UnixMilli(),
	}
	c.logger.Info("recovered turn",
		"project_id", in.ProjectID, "turn_id", turnID,
		"prior_results", len(results), "files_to_verify", len(snap.FilesToVerify))
	return snap, nil
}

// State converts a recovery snapshot into a continuation state so that the
// turn resumes through the same path as a checkpoint.
func State(snap domain.RecoverySnapshot) domain.ContinuationState {
	return domain.ContinuationState{
		TurnID:          snap.TurnID,
		Messages:        snap.Messages,
		ToolResults:     snap.ToolResults,
		SessionSnapshot: snap.SessionSnapshot,
		PartialResponse: snap.PartialResponse,
		ElapsedTimeMs:   snap.ElapsedTimeMs,
		CreatedAtMs:     snap.RecoveredAtMs,
	}
}

// replayDeletions applies the recorded deletions in call order. A path
// written by a later call survives: the resent payload already holds the
// content that call produced.
func (c *Controller) replayDeletions(projectID string, sess *session.Session, results []domain.ToolResult) {
	for i, res := range results {
		p, ok := res.TouchedPath()
		if !ok {
			continue
		}
		switch res.Action {
		case domain.FileActionDeleted:
			if writtenAfter(results[i+1:])[p] {
				continue
			}
			if sess.Delete(p) {
				c.logger.Debug("replayed deletion", "project_id", projectID, "path", p)
			}
		case domain.FileActionFolderDeleted:
			if removed := sess.DeletePrefixExcept(p, writtenAfter(results[i+1:])); len(removed) > 0 {
				c.logger.Debug("replayed folder deletion", "project_id", projectID, "path", p, "count", len(removed))
			}
		}
	}
}

// writtenAfter collects the paths that successful writes in results touched.
func writtenAfter(results []domain.ToolResult) map[string]bool {
	out := make(map[string]bool)
	for _, res := range results {
		p, ok := res.TouchedPath()
		if !ok {
			continue
		}
		switch res.Action {
		case domain.FileActionDeleted, domain.FileActionFolderDeleted, domain.FileActionRead:
			continue
		}
		out[p] = true
	}
	return out
}

// dedupe drops repeated call ids, keeping the first occurrence.
func dedupe(results []domain.ToolResult) []domain.ToolResult {
	seen := make(map[string]bool, len(results))
	out := make([]domain.ToolResult, 0, len(results))
	for _, r := range results {
		if r.CallID != "" {
			if seen[r.CallID] {
				continue
			}
			seen[r.CallID] = true
		}
		out = append(out, r)
	}
	return out
}
