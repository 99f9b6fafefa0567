package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// InitSession seeds the project's session from payload. An existing session
// is kept unless replace is set.
func (s *Service) InitSession(ctx context.Context, projectID string, payload *domain.Payload, replace bool) (domain.SessionSummary, error) {
	release, err := s.sessions.Lock(ctx, projectID)
	if err != nil {
		return domain.SessionSummary{}, err
	}
	defer release()

	if replace {
		sess, err := s.sessions.Replace(projectID, payload)
		if err != nil {
			return domain.SessionSummary{}, fmt.Errorf("failed to init session: %w", err)
		}
		summary := sess.Summary()
		summary.Created = true
		return summary, nil
	}

	sess, created, err := s.sessions.Init(projectID, payload)
	if err != nil {
		return domain.SessionSummary{}, fmt.Errorf("failed to init session: %w", err)
	}
	summary := sess.Summary()
	summary.Created = created
	if created {
		s.logger.Info("session created", "project_id", projectID, "files", summary.FileCount)
	}
	return summary, nil
}

// GetSession returns the summary of the project's session.
func (s *Service) GetSession(projectID string) (domain.SessionSummary, error) {
	sess, err := s.sessions.Get(projectID)
	if err != nil {
		return domain.SessionSummary{}, err
	}
	return sess.Summary(), nil
}

// SessionSnapshot returns a deep copy of the project's files.
func (s *Service) SessionSnapshot(projectID string) (domain.SessionSnapshot, error) {
	return s.sessions.Snapshot(projectID)
}

// ClearSession drops the project's session once no tool sequence holds it.
func (s *Service) ClearSession(ctx context.Context, projectID string) (bool, error) {
	release, err := s.sessions.Lock(ctx, projectID)
	if err != nil {
		return false, err
	}
	defer release()
	return s.sessions.Clear(projectID), nil
}
