// Package session holds the per-project virtual file stores. Sessions live
// only in process memory; a checkpoint carries everything needed to rebuild
// one elsewhere.
package session

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// Session is the virtual file store of one project. Field access is
// guarded internally; callers serialize whole tool sequences with
// Store.Lock.
type Session struct {
	ProjectID string

	mu        sync.RWMutex
	fileTree  []string
	treeIndex map[string]struct{}
	files     map[string]domain.FileRecord
}

func newSession(projectID string) *Session {
	return &Session{
		ProjectID: projectID,
		treeIndex: make(map[string]struct{}),
		files:     make(map[string]domain.FileRecord),
	}
}

// Get returns the record stored at p.
func (s *Session) Get(p string) (domain.FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.files[p]
	return cloneRecord(rec), ok
}

// Put creates or overwrites a record and reports whether it was created.
// Missing parent directories are added to the file tree.
func (s *Session) Put(rec domain.FileRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.files[rec.Path]
	rec.WorkspaceID = s.ProjectID
	s.files[rec.Path] = cloneRecord(rec)
	s.addToTree(rec.Path, rec.IsDirectory)
	return !exists
}

// Delete removes the record at p.
func (s *Session) Delete(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[p]; !ok {
		return false
	}
	delete(s.files, p)
	s.removeFromTree(func(entry string) bool { return entry == p })
	return true
}

// DeletePrefix removes every record under the folder prefix (which must end
// with "/"), together with the folder's own directory record. It returns the
// removed paths in sorted order. The file tree is left untouched when no
// record matched.
func (s *Session) DeletePrefix(prefix string) []string {
	return s.DeletePrefixExcept(prefix, nil)
}

// DeletePrefixExcept behaves like DeletePrefix but spares the paths in keep
// and every directory that still holds one of them.
func (s *Session) DeletePrefixExcept(prefix string, keep map[string]bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir := strings.TrimSuffix(prefix, "/")
	held := func(entry string) bool {
		entry = strings.TrimSuffix(entry, "/")
		for k := range keep {
			if k == entry || strings.HasPrefix(k, entry+"/") {
				return true
			}
		}
		return false
	}
	var removed []string
	for p, rec := range s.files {
		if (strings.HasPrefix(p, prefix) || (p == dir && rec.IsDirectory)) && !held(p) {
			removed = append(removed, p)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	for _, p := range removed {
		delete(s.files, p)
	}
	s.removeFromTree(func(entry string) bool {
		return (strings.HasPrefix(entry, prefix) || entry == dir) && !held(entry)
	})
	sort.Strings(removed)
	return removed
}

// FileTree returns a copy of the ordered file tree.
func (s *Session) FileTree() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.fileTree...)
}

// Paths returns the sorted paths of all non-directory records.
func (s *Session) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.files))
	for p, rec := range s.files {
		if !rec.IsDirectory {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of records.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Snapshot returns a deep copy of the session state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := make(map[string]domain.FileRecord, len(s.files))
	for p, rec := range s.files {
		files[p] = cloneRecord(rec)
	}
	return domain.SessionSnapshot{
		ProjectID: s.ProjectID,
		FileTree:  append([]string{}, s.fileTree...),
		Files:     files,
	}
}

// Summary returns the lightweight session view.
func (s *Session) Summary() domain.SessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, rec := range s.files {
		total += rec.Size
	}
	return domain.SessionSummary{
		ProjectID:  s.ProjectID,
		FileCount:  len(s.files),
		TotalBytes: total,
		FileTree:   append([]string{}, s.fileTree...),
	}
}

func (s *Session) addToTree(p string, isDir bool) {
	parts := strings.Split(p, "/")
	for i := 1; i < len(parts); i++ {
		s.appendTree(strings.Join(parts[:i], "/") + "/")
	}
	if isDir {
		s.appendTree(p + "/")
		return
	}
	s.appendTree(p)
}

func (s *Session) appendTree(entry string) {
	if _, ok := s.treeIndex[entry]; ok {
		return
	}
	s.treeIndex[entry] = struct{}{}
	s.fileTree = append(s.fileTree, entry)
}

func (s *Session) removeFromTree(match func(string) bool) {
	kept := s.fileTree[:0]
	for _, entry := range s.fileTree {
		if match(entry) {
			delete(s.treeIndex, entry)
			continue
		}
		kept = append(kept, entry)
	}
	s.fileTree = kept
}

// setTree replaces the tree verbatim; used when seeding and restoring.
func (s *Session) setTree(tree []string) {
	s.fileTree = make([]string, 0, len(tree))
	s.treeIndex = make(map[string]struct{}, len(tree))
	for _, entry := range tree {
		s.appendTree(entry)
	}
}

func cloneRecord(rec domain.FileRecord) domain.FileRecord {
	if rec.Metadata != nil {
		meta := make(json.RawMessage, len(rec.Metadata))
		copy(meta, rec.Metadata)
		rec.Metadata = meta
	}
	return rec
}
