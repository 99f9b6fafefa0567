package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// EventSink receives the events of a running turn. It is called from the
// goroutine running the turn and must not block for long.
type EventSink func(domain.TurnEvent)

// recordEvent records an event to the store.
func (s *Service) recordEvent(ctx context.Context, turnID string, eventType domain.EventType, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &domain.Event{
		EventID: domain.NewEventID(),
		TurnID:  turnID,
		Ts:      s.clock.Now().UnixMilli(),
		Type:    eventType,
		Payload: payloadBytes,
	}

	return s.store.CreateEvent(ctx, event)
}

// trace records an event and logs instead of failing: the trace must never
// block a turn.
func (s *Service) trace(ctx context.Context, turnID string, eventType domain.EventType, payload interface{}) {
	if err := s.recordEvent(ctx, turnID, eventType, payload); err != nil {
		s.logger.Warn("failed to record event", "turn_id", turnID, "type", eventType, "error", err)
	}
}

func (s *Service) emit(sink EventSink, turnID string, ev domain.TurnEvent) {
	if sink == nil {
		return
	}
	ev.TurnID = turnID
	if ev.Ts == 0 {
		ev.Ts = s.clock.Now().UnixMilli()
	}
	sink(ev)
}

// GetTurnEvents returns the trace of a turn.
func (s *Service) GetTurnEvents(ctx context.Context, turnID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	events, err := s.store.GetEvents(ctx, turnID, afterTs, types, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get turn events: %w", err)
	}
	return events, nil
}

// GetTurn returns the persisted turn record, or nil when unknown.
func (s *Service) GetTurn(ctx context.Context, turnID string) (*domain.Turn, error) {
	turn, err := s.store.GetTurn(ctx, turnID)
	if err != nil {
		return nil, fmt.Errorf("failed to get turn: %w", err)
	}
	return turn, nil
}
