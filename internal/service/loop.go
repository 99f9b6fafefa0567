package service

import (
	"context"

	"github.com/xiaot623/gogo/agentcore/internal/continuation"
	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// loop alternates model calls and tool calls until the model answers without
// tool calls, the checkpoint threshold is reached, or the turn fails.
func (s *Service) loop(ctx context.Context, run *turnRun, sink EventSink) *domain.TurnResponse {
	ctrl := run.ctrl

	for _, call := range domain.PendingToolCalls(ctrl.Messages()) {
		if ctx.Err() != nil {
			return s.abort(ctx, run, ctx.Err(), sink)
		}
		if !s.runToolCall(ctx, ctrl, call, sink) {
			if len(run.preamble) > 1 {
				s.logger.Warn("dropping follow-up messages, checkpoint reached before pending tool calls finished",
					"turn_id", ctrl.TurnID(), "messages", len(run.preamble)-1)
			}
			return s.checkpoint(ctx, run, sink)
		}
	}
	ctrl.AppendMessages(run.preamble...)
	run.preamble = nil

	for {
		if ctx.Err() != nil {
			return s.abort(ctx, run, ctx.Err(), sink)
		}
		if !ctrl.AllowToolCall() {
			return s.checkpoint(ctx, run, sink)
		}
		s.warnIfApproaching(ctx, ctrl, sink)

		if ctrl.Iterations() >= s.config.MaxToolIterations {
			return s.fail(ctx, run, ErrIterationLimit, sink)
		}
		ctrl.IncIteration()

		msg, cut, err := s.streamModel(ctx, ctrl, run.model, sink)
		if err != nil {
			if ctx.Err() != nil {
				return s.abort(ctx, run, ctx.Err(), sink)
			}
			return s.fail(ctx, run, err, sink)
		}
		if cut {
			return s.checkpoint(ctx, run, sink)
		}
		ctrl.AppendMessages(msg)

		if len(msg.ToolCalls) == 0 {
			return s.complete(ctx, run, msg)
		}
		for _, call := range msg.ToolCalls {
			if ctx.Err() != nil {
				return s.abort(ctx, run, ctx.Err(), sink)
			}
			if !s.runToolCall(ctx, ctrl, call, sink) {
				return s.checkpoint(ctx, run, sink)
			}
		}
	}
}

// warnIfApproaching emits time_warning the first time the turn crosses the
// warning threshold.
func (s *Service) warnIfApproaching(ctx context.Context, ctrl *continuation.Controller, sink EventSink) {
	remaining, ok := ctrl.TakeWarning()
	if !ok {
		return
	}
	payload := domain.TimeWarningPayload{
		RemainingMs: remaining.Milliseconds(),
		ElapsedMs:   ctrl.Elapsed().Milliseconds(),
	}
	s.trace(ctx, ctrl.TurnID(), domain.EventTypeTimeWarning, payload)
	s.emit(sink, ctrl.TurnID(), domain.TurnEvent{Type: domain.EventTypeTimeWarning, RemainingMs: payload.RemainingMs})
	s.logger.Info("turn approaching time limit", "turn_id", ctrl.TurnID(), "remaining_ms", payload.RemainingMs)
}

func (s *Service) complete(ctx context.Context, run *turnRun, msg domain.ChatMessage) *domain.TurnResponse {
	run.ctrl.Complete()
	return s.finish(ctx, run, &msg, domain.EventTypeTurnDone, "")
}

func (s *Service) fail(ctx context.Context, run *turnRun, err error, sink EventSink) *domain.TurnResponse {
	run.ctrl.Fail()
	s.logger.Error("turn failed", "turn_id", run.ctrl.TurnID(), "error", err)
	s.emit(sink, run.ctrl.TurnID(), domain.TurnEvent{Type: domain.EventTypeTurnFailed, Text: err.Error()})
	return s.finish(ctx, run, nil, domain.EventTypeTurnFailed, err.Error())
}

// abort ends a request that can no longer produce a checkpoint: the hard
// ceiling passed or the client went away. The client continues through
// recovery.
func (s *Service) abort(ctx context.Context, run *turnRun, cause error, sink EventSink) *domain.TurnResponse {
	run.ctrl.Abort()
	reason := cause.Error()
	s.logger.Warn("turn aborted", "turn_id", run.ctrl.TurnID(), "reason", reason)
	s.emit(sink, run.ctrl.TurnID(), domain.TurnEvent{Type: domain.EventTypeTurnAborted, Text: reason})
	// The request context may already be gone; the trace still gets written.
	return s.finish(context.WithoutCancel(ctx), run, nil, domain.EventTypeTurnAborted, reason)
}

func (s *Service) finish(ctx context.Context, run *turnRun, msg *domain.ChatMessage, eventType domain.EventType, errMsg string) *domain.TurnResponse {
	ctrl := run.ctrl
	turnID := ctrl.TurnID()
	elapsed := ctrl.Elapsed().Milliseconds()
	state := ctrl.State()

	payload := domain.TurnDonePayload{
		State:         state,
		Iterations:    ctrl.Iterations(),
		ToolResults:   len(ctrl.ToolResults()),
		ElapsedTimeMs: elapsed,
		Error:         errMsg,
	}
	if msg != nil {
		payload.FinalMessage = msg.Content
	}
	s.trace(ctx, turnID, eventType, payload)
	if err := s.store.UpdateTurnCompleted(ctx, turnID, state, elapsed); err != nil {
		s.logger.Warn("failed to update turn status", "turn_id", turnID, "error", err)
	}
	if state == domain.TurnStateCompleted {
		s.logger.Info("turn completed", "turn_id", turnID, "iterations", payload.Iterations, "elapsed_ms", elapsed)
	}

	return &domain.TurnResponse{
		TurnID:        turnID,
		ProjectID:     ctrl.ProjectID(),
		State:         state,
		Message:       msg,
		ToolResults:   ctrl.ToolResults(),
		ElapsedTimeMs: elapsed,
		Error:         errMsg,
	}
}
