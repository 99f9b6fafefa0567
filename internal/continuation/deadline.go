// Package continuation decides when a turn must stop and freeze itself into
// a resumable checkpoint, and rebuilds turns from those checkpoints.
package continuation

import (
	"errors"
	"fmt"
	"time"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// Limits are the per-request time thresholds, measured from request start.
// They must satisfy 0 < WarnAfter <= CheckpointAfter < MaxDuration.
type Limits struct {
	MaxDuration     time.Duration
	WarnAfter       time.Duration
	CheckpointAfter time.Duration
}

// DefaultLimits fits a platform with a five minute request ceiling.
func DefaultLimits() Limits {
	return Limits{
		MaxDuration:     300 * time.Second,
		WarnAfter:       240 * time.Second,
		CheckpointAfter: 270 * time.Second,
	}
}

// Validate checks threshold ordering.
func (l Limits) Validate() error {
	switch {
	case l.MaxDuration <= 0:
		return errors.New("max duration must be positive")
	case l.WarnAfter <= 0:
		return errors.New("warn threshold must be positive")
	case l.CheckpointAfter >= l.MaxDuration:
		return fmt.Errorf("checkpoint threshold %s must be below max duration %s", l.CheckpointAfter, l.MaxDuration)
	case l.WarnAfter > l.CheckpointAfter:
		return fmt.Errorf("warn threshold %s must not exceed checkpoint threshold %s", l.WarnAfter, l.CheckpointAfter)
	}
	return nil
}

// Deadline is the explicit time budget of one request. Every decision to
// warn, checkpoint or abort is derived from it and a supplied instant.
type Deadline struct {
	Start  time.Time
	Limits Limits
}

// NewDeadline starts a budget at start.
func NewDeadline(start time.Time, limits Limits) Deadline {
	return Deadline{Start: start, Limits: limits}
}

// Elapsed returns the time spent at now.
func (d Deadline) Elapsed(now time.Time) time.Duration {
	if now.Before(d.Start) {
		return 0
	}
	return now.Sub(d.Start)
}

// Remaining returns the time left before the hard ceiling.
func (d Deadline) Remaining(now time.Time) time.Duration {
	return max(d.Limits.MaxDuration-d.Elapsed(now), 0)
}

// UntilCheckpoint returns the time left before the checkpoint threshold.
func (d Deadline) UntilCheckpoint(now time.Time) time.Duration {
	return max(d.Limits.CheckpointAfter-d.Elapsed(now), 0)
}

// CheckpointAt is the instant after which no new work may start.
func (d Deadline) CheckpointAt() time.Time {
	return d.Start.Add(d.Limits.CheckpointAfter)
}

// HardStop is the instant the platform cuts the request.
func (d Deadline) HardStop() time.Time {
	return d.Start.Add(d.Limits.MaxDuration)
}

// Phase maps an instant to the state the time budget calls for.
func (d Deadline) Phase(now time.Time) domain.TurnState {
	elapsed := d.Elapsed(now)
	switch {
	case elapsed >= d.Limits.MaxDuration:
		return domain.TurnStateAborted
	case elapsed >= d.Limits.CheckpointAfter:
		return domain.TurnStateCheckpointing
	case elapsed >= d.Limits.WarnAfter:
		return domain.TurnStateApproachingLimit
	}
	return domain.TurnStateRunning
}
