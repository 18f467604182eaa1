package sessionstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

func (s *Store) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		var rows []State
		if err := json.Unmarshal(b, &rows); err != nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, row := range rows {
			id := strings.TrimSpace(row.SessionID)
			if id == "" {
				continue
			}
			s.byID[id] = normalizeState(row)
		}
	})
}

func (s *Store) saveFile() {
	s.ensureLoadedFile()
	s.mu.RLock()
	rows := make([]State, 0, len(s.byID))
	for _, state := range s.byID {
		rows = append(rows, normalizeState(state))
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return
	}
	_ = os.MkdirAll(filepath.Dir(s.path), 0o755)
	_ = os.WriteFile(s.path, b, 0o644)
}

func (s *Store) getFile(sessionID string) (State, bool) {
	s.ensureLoadedFile()
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return State{}, false
	}
	s.mu.RLock()
	state, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return State{}, false
	}
	return normalizeState(state), true
}

func (s *Store) putFile(state State) {
	s.ensureLoadedFile()
	normalized := normalizeState(state)
	if normalized.SessionID == "" {
		return
	}
	s.mu.Lock()
	s.byID[normalized.SessionID] = normalized
	s.mu.Unlock()
	s.saveFile()
}

func (s *Store) updateFile(sessionID string, update func(*State)) (State, bool) {
	s.ensureLoadedFile()
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return State{}, false
	}
	s.mu.Lock()
	state, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return State{}, false
	}
	update(&state)
	state.SessionID = id
	state = normalizeState(state)
	s.byID[id] = state
	s.mu.Unlock()
	s.saveFile()
	return state, true
}

func (s *Store) listByProjectFile(projectID string) []State {
	s.ensureLoadedFile()
	pid := strings.TrimSpace(projectID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]State, 0, len(s.byID))
	for _, state := range s.byID {
		if pid != "" && strings.TrimSpace(state.ProjectID) != pid {
			continue
		}
		out = append(out, normalizeState(state))
	}
	return out
}

func (s *Store) deleteFile(sessionID string) {
	s.ensureLoadedFile()
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return
	}
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()
	s.saveFile()
}
