package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/agentcore/internal/continuation"
	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/recovery"
	"github.com/xiaot623/gogo/agentcore/internal/repository"
)

// ErrIterationLimit is reported when a turn keeps calling tools past the
// configured number of model round trips.
var ErrIterationLimit = errors.New("tool iteration limit reached")

// RunTurn runs one request of a turn: a new turn, a resume from a stored or
// inline checkpoint, or a recovery after an unannounced disconnect. It holds
// the project's lease for the whole request.
//
// The returned error covers requests rejected before any work started.
// Failures once the turn runs are reported in the response state.
func (s *Service) RunTurn(ctx context.Context, req domain.TurnRequest, sink EventSink) (*domain.TurnResponse, error) {
	projectID, err := s.resolveProject(ctx, req)
	if err != nil {
		return nil, err
	}

	release, err := s.sessions.Lock(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer release()

	run, err := s.startTurn(ctx, projectID, req, sink)
	if err != nil {
		return nil, err
	}

	run.model = req.Model
	if run.model == "" {
		run.model = s.config.LLMModel
	}

	resp := s.loop(ctx, run, sink)
	resp.Verification = run.verification
	s.emit(sink, run.ctrl.TurnID(), domain.TurnEvent{Type: domain.EventTypeTurnDone, Response: resp})
	return resp, nil
}

// turnRun is one request's view of a turn.
type turnRun struct {
	ctrl         *continuation.Controller
	model        string
	verification []domain.FileVerification
	// preamble is appended once the pending tool calls of the restored
	// history are answered.
	preamble []domain.ChatMessage
}

// resolveProject validates the request shape and finds the project it runs
// against.
func (s *Service) resolveProject(ctx context.Context, req domain.TurnRequest) (string, error) {
	modes := 0
	if req.ContinuationToken != "" {
		modes++
	}
	if req.Continuation != nil {
		modes++
	}
	if req.Recovery != nil {
		modes++
	}
	if modes > 1 {
		return "", fmt.Errorf("%w: continuation_token, continuation and recovery are mutually exclusive", ErrInvalidRequest)
	}

	switch {
	case req.ContinuationToken != "":
		cp, err := s.store.GetCheckpoint(ctx, req.ContinuationToken)
		if err != nil {
			return "", fmt.Errorf("failed to get checkpoint: %w", err)
		}
		if cp == nil {
			return "", fmt.Errorf("%w: %s", repository.ErrCheckpointNotFound, req.ContinuationToken)
		}
		return cp.ProjectID, nil
	case req.Continuation != nil:
		if p := req.Continuation.SessionSnapshot.ProjectID; p != "" {
			return p, nil
		}
	case req.Recovery != nil:
		if req.Recovery.ProjectID == "" {
			req.Recovery.ProjectID = req.ProjectID
		}
		if req.Recovery.ProjectID != "" {
			return req.Recovery.ProjectID, nil
		}
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return "", fmt.Errorf("%w: project_id is required", ErrInvalidRequest)
	}
	return req.ProjectID, nil
}

// startTurn builds the controller for the request and records how the turn
// began.
func (s *Service) startTurn(ctx context.Context, projectID string, req domain.TurnRequest, sink EventSink) (*turnRun, error) {
	switch {
	case req.ContinuationToken != "":
		state, err := s.consumeCheckpoint(ctx, req.ContinuationToken)
		if err != nil {
			return nil, err
		}
		return s.resumeTurn(ctx, state, req.Messages, "checkpoint resume", domain.EventTypeTurnResumed, sink)

	case req.Continuation != nil:
		state := *req.Continuation
		if state.SessionSnapshot.ProjectID == "" {
			state.SessionSnapshot.ProjectID = projectID
		}
		if state.ContinuationToken != "" {
			// The inline copy of a stored checkpoint spends the stored token
			// too, so the same checkpoint cannot be resumed twice.
			if _, err := s.store.ConsumeCheckpoint(ctx, state.ContinuationToken, s.clock.Now()); err != nil && !errors.Is(err, repository.ErrCheckpointNotFound) {
				return nil, mapCheckpointError(err)
			}
		}
		return s.resumeTurn(ctx, state, req.Messages, "checkpoint resume", domain.EventTypeTurnResumed, sink)

	case req.Recovery != nil:
		snap, err := s.recovery.Recover(*req.Recovery)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return s.resumeTurn(ctx, recovery.State(snap), req.Messages, "recovery", domain.EventTypeTurnRecovered, sink)
	}

	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("%w: messages are required", ErrInvalidRequest)
	}
	if req.Payload != nil {
		if _, err := s.sessions.Replace(projectID, req.Payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	} else if _, err := s.sessions.Get(projectID); err != nil {
		return nil, err
	}

	ctrl := continuation.New(s.clock, s.config.ContinuationLimits(), domain.NewTurnID(), projectID)
	ctrl.AppendMessages(req.Messages...)

	if err := s.store.CreateTurn(ctx, &domain.Turn{
		TurnID:    ctrl.TurnID(),
		ProjectID: projectID,
		Status:    domain.TurnStateRunning,
		StartedAt: ctrl.Deadline().Start,
	}); err != nil {
		return nil, fmt.Errorf("failed to create turn: %w", err)
	}
	s.trace(ctx, ctrl.TurnID(), domain.EventTypeTurnStarted, domain.TurnStartedPayload{
		ProjectID: projectID,
		Messages:  len(req.Messages),
	})
	s.emit(sink, ctrl.TurnID(), domain.TurnEvent{Type: domain.EventTypeTurnStarted})
	s.logger.Info("turn started", "turn_id", ctrl.TurnID(), "project_id", projectID)
	return &turnRun{ctrl: ctrl}, nil
}

// resumeTurn rebuilds the controller from state, replacing the session with
// the snapshot and queueing a notice listing the files to re-verify.
func (s *Service) resumeTurn(ctx context.Context, state domain.ContinuationState, followUp []domain.ChatMessage, reason string, eventType domain.EventType, sink EventSink) (*turnRun, error) {
	ctrl, verification, err := continuation.Resume(s.clock, s.config.ContinuationLimits(), state, s.sessions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	turnID := ctrl.TurnID()

	turn, err := s.store.GetTurn(ctx, turnID)
	switch {
	case err != nil:
		s.logger.Warn("failed to get turn", "turn_id", turnID, "error", err)
	case turn == nil:
		if err := s.store.CreateTurn(ctx, &domain.Turn{
			TurnID:    turnID,
			ProjectID: ctrl.ProjectID(),
			Status:    domain.TurnStateResumed,
			StartedAt: ctrl.Deadline().Start,
			ElapsedMs: state.ElapsedTimeMs,
		}); err != nil {
			s.logger.Warn("failed to create resumed turn", "turn_id", turnID, "error", err)
		}
	default:
		if err := s.store.MarkTurnResumed(ctx, turnID, domain.TurnStateResumed); err != nil {
			s.logger.Warn("failed to mark turn resumed", "turn_id", turnID, "error", err)
		}
	}

	run := &turnRun{
		ctrl:         ctrl,
		verification: verification,
		preamble:     append([]domain.ChatMessage{continuation.ResumeNotice(reason, verification)}, followUp...),
	}

	s.trace(ctx, turnID, eventType, domain.TurnStartedPayload{
		ProjectID:     ctrl.ProjectID(),
		Messages:      len(state.Messages),
		ToolResults:   len(state.ToolResults),
		ElapsedTimeMs: state.ElapsedTimeMs,
		Verification:  verification,
	})
	s.emit(sink, turnID, domain.TurnEvent{Type: eventType, Verification: verification})
	s.logger.Info("turn resumed", "turn_id", turnID, "reason", reason,
		"prior_elapsed_ms", state.ElapsedTimeMs, "files_to_verify", len(verification))
	return run, nil
}
