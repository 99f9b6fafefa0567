package domain

import "github.com/google/uuid"

// NewTurnID returns a fresh turn id.
func NewTurnID() string {
	return "turn_" + uuid.New().String()[:8]
}

// NewEventID returns a fresh event id.
func NewEventID() string {
	return "evt_" + uuid.New().String()[:8]
}

// NewCallID returns a fresh tool call id for calls that arrive without one.
func NewCallID() string {
	return "call_" + uuid.New().String()[:8]
}
