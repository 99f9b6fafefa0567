package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xiaot623/gogo/agentcore/internal/continuation"
	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// ExecuteTool runs a single tool call outside a model loop. Calls that carry
// a call id already in the ledger are answered from the record instead of
// running again.
func (s *Service) ExecuteTool(ctx context.Context, projectID string, name domain.ToolName, req domain.ExecuteToolRequest) (domain.ToolResult, error) {
	release, err := s.sessions.Lock(ctx, projectID)
	if err != nil {
		return domain.ToolResult{}, err
	}
	defer release()

	if req.CallID != "" {
		if rec, err := s.store.GetToolResult(ctx, req.CallID); err != nil {
			s.logger.Warn("failed to look up tool result", "call_id", req.CallID, "error", err)
		} else if rec != nil {
			if rec.ProjectID != projectID || (req.TurnID != "" && rec.TurnID != req.TurnID) {
				s.logger.Warn("call id already recorded elsewhere",
					"call_id", req.CallID, "project_id", projectID, "recorded_project_id", rec.ProjectID, "recorded_turn_id", rec.TurnID)
				return domain.Failed(req.CallID, name,
					domain.InvalidArgument("callId", "call id %s was already used by another project or turn", req.CallID),
					&domain.ErrorContext{Tool: name}), nil
			}
			s.logger.Info("tool call answered from ledger", "call_id", req.CallID, "tool", rec.ToolName)
			return rec.Result, nil
		}
	} else {
		req.CallID = domain.NewCallID()
	}

	res := s.dispatcher.Execute(ctx, name, req.Input, projectID, req.CallID)
	if req.TurnID != "" {
		if err := s.ensureTurn(ctx, req.TurnID, projectID); err != nil {
			s.logger.Warn("failed to attach tool result to turn", "turn_id", req.TurnID, "error", err)
			return res, nil
		}
		s.saveToolResult(ctx, req.TurnID, projectID, res)
	}
	return res, nil
}

// ensureTurn creates a turn record for turnID when none exists.
func (s *Service) ensureTurn(ctx context.Context, turnID, projectID string) error {
	turn, err := s.store.GetTurn(ctx, turnID)
	if err != nil {
		return fmt.Errorf("failed to get turn: %w", err)
	}
	if turn != nil {
		return nil
	}
	return s.store.CreateTurn(ctx, &domain.Turn{
		TurnID:    turnID,
		ProjectID: projectID,
		Status:    domain.TurnStateRunning,
		StartedAt: s.clock.Now(),
	})
}

func (s *Service) saveToolResult(ctx context.Context, turnID, projectID string, res domain.ToolResult) {
	if res.CallID == "" {
		return
	}
	if _, err := s.store.SaveToolResult(ctx, &domain.ToolResultRecord{
		CallID:    res.CallID,
		TurnID:    turnID,
		ProjectID: projectID,
		ToolName:  res.Tool,
		Success:   res.Success,
		Result:    res,
		CreatedAt: s.clock.Now(),
	}); err != nil {
		s.logger.Warn("failed to save tool result", "call_id", res.CallID, "error", err)
	}
}

// runToolCall executes one model-requested call inside a turn and appends the
// tool message. It returns false, without running anything, when the turn
// may not start new work.
func (s *Service) runToolCall(ctx context.Context, ctrl *continuation.Controller, call domain.MessageToolCall, sink EventSink) bool {
	turnID := ctrl.TurnID()

	if res, ok := ctrl.Completed(call.ID); ok {
		ctrl.AppendMessages(toolMessage(call, res))
		return true
	}
	if rec, err := s.store.GetToolResult(ctx, call.ID); err == nil && rec != nil && rec.TurnID == turnID && rec.ProjectID == ctrl.ProjectID() {
		s.logger.Info("tool call answered from ledger", "turn_id", turnID, "call_id", call.ID)
		ctrl.RecordToolResult(rec.Result)
		ctrl.AppendMessages(toolMessage(call, rec.Result))
		return true
	}

	if !ctrl.AllowToolCall() {
		return false
	}
	s.warnIfApproaching(ctx, ctrl, sink)

	tc := domain.ToolCall{Name: domain.ToolName(call.Name), CallID: call.ID}
	s.emit(sink, turnID, domain.TurnEvent{Type: domain.EventTypeToolCall, ToolCall: &tc})

	var res domain.ToolResult
	input, terr := decodeArguments(call.Arguments)
	if terr != nil {
		res = domain.Failed(call.ID, tc.Name, terr, &domain.ErrorContext{Tool: tc.Name})
	} else {
		tc.Input = input
		res = s.dispatcher.Execute(ctx, tc.Name, input, ctrl.ProjectID(), call.ID)
	}

	ctrl.RecordToolResult(res)
	ctrl.AppendMessages(toolMessage(call, res))
	s.saveToolResult(ctx, turnID, ctrl.ProjectID(), res)
	s.trace(ctx, turnID, domain.EventTypeToolResult, res)
	s.emit(sink, turnID, domain.TurnEvent{Type: domain.EventTypeToolResult, ToolResult: &res})
	return true
}

func decodeArguments(raw string) (map[string]any, *domain.ToolError) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, domain.InvalidArgument("arguments", "tool arguments are not a JSON object: %v", err)
	}
	if input == nil {
		input = map[string]any{}
	}
	return input, nil
}
