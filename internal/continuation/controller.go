package continuation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/agentcore/internal/clock"
	"github.com/xiaot623/gogo/agentcore/internal/domain"
	"github.com/xiaot623/gogo/agentcore/internal/session"
)

var (
	// ErrDeadlineExceeded is returned once the hard ceiling has passed.
	ErrDeadlineExceeded = errors.New("turn exceeded its hard deadline")
	// ErrTerminal is returned when a finished turn is asked to do more work.
	ErrTerminal = errors.New("turn already finished")
)

// NewToken returns a fresh continuation token.
func NewToken() string {
	return "ct_" + uuid.New().String()
}

// Controller is the state machine of a single turn within one request.
type Controller struct {
	mu sync.Mutex

	clock    clock.Clock
	deadline Deadline

	turnID    string
	projectID string
	state     domain.TurnState
	warned    bool

	// elapsed before this request, carried across checkpoints
	prior time.Duration

	messages   []domain.ChatMessage
	results    []domain.ToolResult
	byCallID   map[string]int
	partial    domain.PartialResponse
	iterations int
}

// New starts a controller for a fresh turn. The deadline begins now.
func New(clk clock.Clock, limits Limits, turnID, projectID string) *Controller {
	return &Controller{
		clock:     clk,
		deadline:  NewDeadline(clk.Now(), limits),
		turnID:    turnID,
		projectID: projectID,
		state:     domain.TurnStateRunning,
		byCallID:  make(map[string]int),
	}
}

// Resume rebuilds a turn from a checkpoint. The project's session is fully
// replaced by the snapshot before anything else happens, and the files the
// earlier requests touched are returned for re-verification.
func Resume(clk clock.Clock, limits Limits, state domain.ContinuationState, store *session.Store) (*Controller, []domain.FileVerification, error) {
	if state.TurnID == "" {
		return nil, nil, fmt.Errorf("continuation state has no turn id")
	}
	sess, err := store.Restore(state.SessionSnapshot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to restore session: %w", err)
	}

	c := New(clk, limits, state.TurnID, state.SessionSnapshot.ProjectID)
	c.state = domain.TurnStateResumed
	c.prior = time.Duration(state.ElapsedTimeMs) * time.Millisecond
	c.messages = cloneMessages(state.Messages)
	for _, res := range state.ToolResults {
		c.recordLocked(res)
	}
	c.partial = state.PartialResponse
	c.iterations = state.Iterations

	return c, VerifyTouched(sess, state.ToolResults), nil
}

// TurnID returns the turn identifier.
func (c *Controller) TurnID() string { return c.turnID }

// ProjectID returns the project the turn runs against.
func (c *Controller) ProjectID() string { return c.projectID }

// Deadline returns the request's time budget.
func (c *Controller) Deadline() Deadline { return c.deadline }

// Now reads the injected clock.
func (c *Controller) Now() time.Time { return c.clock.Now() }

// State returns the current state without re-reading the clock.
func (c *Controller) State() domain.TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Tick advances the state machine to match the clock. States only move
// forward; terminal states and Checkpointing are sticky.
func (c *Controller) Tick() domain.TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickLocked()
}

func (c *Controller) tickLocked() domain.TurnState {
	if c.state.Terminal() || c.state == domain.TurnStateCheckpointing {
		return c.state
	}
	switch phase := c.deadline.Phase(c.clock.Now()); phase {
	case domain.TurnStateAborted, domain.TurnStateCheckpointing, domain.TurnStateApproachingLimit:
		c.state = phase
	}
	return c.state
}

// AllowToolCall reports whether a new tool call (or model call) may start.
func (c *Controller) AllowToolCall() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.tickLocked() {
	case domain.TurnStateRunning, domain.TurnStateResumed, domain.TurnStateApproachingLimit:
		return true
	}
	return false
}

// TakeWarning returns the remaining time the first time the turn is seen in
// ApproachingLimit; afterwards it reports false.
func (c *Controller) TakeWarning() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.warned || c.tickLocked() != domain.TurnStateApproachingLimit {
		return 0, false
	}
	c.warned = true
	return c.deadline.Remaining(c.clock.Now()), true
}

// Elapsed returns the total turn time including earlier requests.
func (c *Controller) Elapsed() time.Duration {
	return c.prior + c.deadline.Elapsed(c.clock.Now())
}

// UntilCheckpoint is the budget left for a model call started now.
func (c *Controller) UntilCheckpoint() time.Duration {
	return c.deadline.UntilCheckpoint(c.clock.Now())
}

// AppendMessages adds messages to the history.
func (c *Controller) AppendMessages(msgs ...domain.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, cloneMessages(msgs)...)
}

// Messages returns a copy of the history.
func (c *Controller) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneMessages(c.messages)
}

// RecordToolResult appends a completed call. A callID that is already
// recorded is ignored so that replays never duplicate results.
func (c *Controller) RecordToolResult(res domain.ToolResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recordLocked(res)
}

func (c *Controller) recordLocked(res domain.ToolResult) bool {
	if res.CallID != "" {
		if _, dup := c.byCallID[res.CallID]; dup {
			return false
		}
		c.byCallID[res.CallID] = len(c.results)
	}
	c.results = append(c.results, res)
	return true
}

// Completed returns the recorded result for callID.
func (c *Controller) Completed(callID string) (domain.ToolResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.byCallID[callID]
	if !ok {
		return domain.ToolResult{}, false
	}
	return c.results[i], true
}

// ToolResults returns the recorded results in completion order.
func (c *Controller) ToolResults() []domain.ToolResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ToolResult(nil), c.results...)
}

// IncIteration counts a model round trip and returns the new total.
func (c *Controller) IncIteration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.iterations++
	return c.iterations
}

// Iterations returns the number of model round trips so far.
func (c *Controller) Iterations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.iterations
}

// Partial returns the buffered, unfinalized model output.
func (c *Controller) Partial() domain.PartialResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partial
}

// AppendPartial extends the buffered model output.
func (c *Controller) AppendPartial(content, reasoning string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.partial.Content += content
	c.partial.Reasoning += reasoning
}

// TakePartial returns and clears the buffered output.
func (c *Controller) TakePartial() domain.PartialResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.partial
	c.partial = domain.PartialResponse{}
	return p
}

// Checkpoint freezes the turn. The controller moves to Checkpointing and
// accepts no further tool calls in this request.
func (c *Controller) Checkpoint(snapshot domain.SessionSnapshot) (domain.ContinuationState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return domain.ContinuationState{}, fmt.Errorf("%w: %s", ErrTerminal, c.state)
	}
	now := c.clock.Now()
	if c.deadline.Phase(now) == domain.TurnStateAborted {
		c.state = domain.TurnStateAborted
		return domain.ContinuationState{}, ErrDeadlineExceeded
	}
	c.state = domain.TurnStateCheckpointing
	return domain.ContinuationState{
		ContinuationToken: NewToken(),
		TurnID:            c.turnID,
		Messages:          cloneMessages(c.messages),
		ToolResults:       append([]domain.ToolResult{}, c.results...),
		SessionSnapshot:   snapshot,
		PartialResponse:   c.partial,
		ElapsedTimeMs:     (c.prior + c.deadline.Elapsed(now)).Milliseconds(),
		Iterations:        c.iterations,
		CreatedAtMs:       now.UnixMilli(),
	}, nil
}

// Complete marks a normally finished turn.
func (c *Controller) Complete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Terminal() {
		c.state = domain.TurnStateCompleted
	}
}

// Fail marks a turn that stopped on an unrecoverable error.
func (c *Controller) Fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Terminal() {
		c.state = domain.TurnStateFailed
	}
}

// Abort cuts the turn; the client must go through recovery.
func (c *Controller) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = domain.TurnStateAborted
}

func cloneMessages(msgs []domain.ChatMessage) []domain.ChatMessage {
	if msgs == nil {
		return nil
	}
	out := make([]domain.ChatMessage, len(msgs))
	for i, m := range msgs {
		if m.ToolCalls != nil {
			m.ToolCalls = append([]domain.MessageToolCall(nil), m.ToolCalls...)
		}
		out[i] = m
	}
	return out
}
