package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

var (
	// ErrSessionNotFound is returned when no session exists for a project.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidProject is returned for an empty project id.
	ErrInvalidProject = errors.New("project_id is required")
)

// Store maps project ids to sessions and hands out per-project leases.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	leases   map[string]chan struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		leases:   make(map[string]chan struct{}),
	}
}

// Init returns the session for projectID, creating it from seed when it does
// not exist yet. The boolean reports whether a session was created.
func (s *Store) Init(projectID string, seed *domain.Payload) (*Session, bool, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, false, ErrInvalidProject
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[projectID]; ok {
		return sess, false, nil
	}
	sess, err := seedSession(projectID, seed)
	if err != nil {
		return nil, false, err
	}
	s.sessions[projectID] = sess
	return sess, true, nil
}

// Replace discards any existing session for projectID and seeds a new one.
func (s *Store) Replace(projectID string, seed *domain.Payload) (*Session, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, ErrInvalidProject
	}
	sess, err := seedSession(projectID, seed)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sessions[projectID] = sess
	s.mu.Unlock()
	return sess, nil
}

// Get returns the session for projectID.
func (s *Store) Get(projectID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[projectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, projectID)
	}
	return sess, nil
}

// Restore replaces the project's session with the snapshot contents.
func (s *Store) Restore(snap domain.SessionSnapshot) (*Session, error) {
	if strings.TrimSpace(snap.ProjectID) == "" {
		return nil, ErrInvalidProject
	}
	sess := newSession(snap.ProjectID)
	for p, rec := range snap.Files {
		rec.Path = p
		sess.files[p] = cloneRecord(rec)
	}
	sess.setTree(snap.FileTree)

	s.mu.Lock()
	s.sessions[snap.ProjectID] = sess
	s.mu.Unlock()
	return sess, nil
}

// Snapshot returns a deep copy of the project's session.
func (s *Store) Snapshot(projectID string) (domain.SessionSnapshot, error) {
	sess, err := s.Get(projectID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Clear drops the project's session and reports whether one existed.
func (s *Store) Clear(projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[projectID]
	delete(s.sessions, projectID)
	return ok
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Lock acquires the project's lease: at most one tool-execution sequence
// runs per project at a time. Waiting honours ctx. The returned release
// function is idempotent.
func (s *Store) Lock(ctx context.Context, projectID string) (func(), error) {
	s.mu.Lock()
	lease, ok := s.leases[projectID]
	if !ok {
		lease = make(chan struct{}, 1)
		s.leases[projectID] = lease
	}
	s.mu.Unlock()

	select {
	case lease <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-lease }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to acquire lease for %s: %w", projectID, ctx.Err())
	}
}

func seedSession(projectID string, seed *domain.Payload) (*Session, error) {
	sess := newSession(projectID)
	if seed == nil {
		return sess, nil
	}
	for i, f := range seed.Files {
		isDir := f.IsDirectory || strings.HasSuffix(f.Path, "/")
		p := domain.NormalizePath(f.Path)
		if p == "" {
			return nil, fmt.Errorf("payload file %d has an empty path", i)
		}
		var rec domain.FileRecord
		if isDir {
			rec = domain.NewDirectoryRecord(projectID, p)
		} else {
			rec = domain.NewFileRecord(projectID, p, f.Content)
			if f.Type != "" {
				rec.FileType = f.Type
			}
		}
		rec.Metadata = f.Metadata
		sess.files[p] = cloneRecord(rec)
	}
	if len(seed.FileTree) > 0 {
		tree := make([]string, 0, len(seed.FileTree))
		for _, entry := range seed.FileTree {
			dir := strings.HasSuffix(entry, "/")
			p := domain.NormalizePath(entry)
			if p == "" {
				continue
			}
			if dir {
				p += "/"
			}
			tree = append(tree, p)
		}
		sess.setTree(tree)
		return sess, nil
	}
	for _, f := range seed.Files {
		p := domain.NormalizePath(f.Path)
		sess.addToTree(p, sess.files[p].IsDirectory)
	}
	return sess, nil
}
