package sessionstore

import (
	"encoding/json"
	"strings"
	"time"
)

// payload bundles the parts of State that live in one JSON column; the
// queryable identity columns stay relational.
type payload struct {
	CompletedPhases []int           `json:"completed_phases,omitempty"`
	Messages        []MessageRecord `json:"messages,omitempty"`
	Files           []FileRecord    `json:"files,omitempty"`
	CreatedAt       time.Time       `json:"created_at,omitempty"`
}

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS wizard_sessions (
  session_id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL DEFAULT '',
  user_id TEXT NOT NULL DEFAULT '',
  current_phase INTEGER NOT NULL DEFAULT 1,
  is_active BOOLEAN NOT NULL DEFAULT FALSE,
  payload JSONB NOT NULL DEFAULT '{}',
  updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_wizard_sessions_project_id ON wizard_sessions (project_id);
`)
	})
	return s.schemaErr
}

func scanStateDB(row rowScanner) (State, bool) {
	var state State
	var raw []byte
	err := row.Scan(
		&state.SessionID,
		&state.ProjectID,
		&state.UserID,
		&state.CurrentPhase,
		&state.IsActive,
		&raw,
		&state.UpdatedAt,
	)
	if err != nil {
		return State{}, false
	}
	var p payload
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &p)
	}
	state.CompletedPhases = p.CompletedPhases
	state.Messages = p.Messages
	state.Files = p.Files
	state.CreatedAt = p.CreatedAt
	return normalizeState(state), true
}

func marshalPayload(state State) []byte {
	b, err := json.Marshal(payload{
		CompletedPhases: state.CompletedPhases,
		Messages:        state.Messages,
		Files:           state.Files,
		CreatedAt:       state.CreatedAt,
	})
	if err != nil {
		return []byte("{}")
	}
	return b
}

const stateColumns = `session_id, project_id, user_id, current_phase, is_active, payload, updated_at`

func (s *Store) getDB(sessionID string) (State, bool) {
	if err := s.ensureSchema(); err != nil {
		return State{}, false
	}
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return State{}, false
	}
	row := s.db.QueryRow(`SELECT `+stateColumns+` FROM wizard_sessions WHERE session_id = $1`, id)
	return scanStateDB(row)
}

func (s *Store) putDB(state State) {
	if err := s.ensureSchema(); err != nil {
		return
	}
	n := normalizeState(state)
	if n.SessionID == "" {
		return
	}
	_, _ = s.db.Exec(`
INSERT INTO wizard_sessions (
  session_id, project_id, user_id, current_phase, is_active, payload, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,NOW())
ON CONFLICT (session_id)
DO UPDATE SET project_id=EXCLUDED.project_id,
  user_id=EXCLUDED.user_id,
  current_phase=EXCLUDED.current_phase,
  is_active=EXCLUDED.is_active,
  payload=EXCLUDED.payload,
  updated_at=NOW()`,
		n.SessionID, n.ProjectID, n.UserID, n.CurrentPhase, n.IsActive, marshalPayload(n))
}

func (s *Store) updateDB(sessionID string, update func(*State)) (State, bool) {
	if err := s.ensureSchema(); err != nil {
		return State{}, false
	}
	tx, err := s.db.Begin()
	if err != nil {
		return State{}, false
	}
	defer func() { _ = tx.Rollback() }()

	id := strings.TrimSpace(sessionID)
	row := tx.QueryRow(`SELECT `+stateColumns+` FROM wizard_sessions WHERE session_id = $1 FOR UPDATE`, id)
	cur, ok := scanStateDB(row)
	if !ok {
		return State{}, false
	}
	update(&cur)
	cur.SessionID = id
	cur = normalizeState(cur)
	_, err = tx.Exec(`
UPDATE wizard_sessions
SET project_id=$2, user_id=$3, current_phase=$4, is_active=$5, payload=$6, updated_at=NOW()
WHERE session_id=$1`,
		cur.SessionID, cur.ProjectID, cur.UserID, cur.CurrentPhase, cur.IsActive, marshalPayload(cur))
	if err != nil {
		return State{}, false
	}
	if err := tx.Commit(); err != nil {
		return State{}, false
	}
	return cur, true
}

func (s *Store) listByProjectDB(projectID string) []State {
	if err := s.ensureSchema(); err != nil {
		return nil
	}
	pid := strings.TrimSpace(projectID)
	query := `SELECT ` + stateColumns + ` FROM wizard_sessions`
	args := []any{}
	if pid != "" {
		query += ` WHERE project_id = $1`
		args = append(args, pid)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil
	}
	defer rows.Close()
	out := make([]State, 0, 16)
	for rows.Next() {
		if state, ok := scanStateDB(rows); ok {
			out = append(out, state)
		}
	}
	return out
}

func (s *Store) deleteDB(sessionID string) {
	if err := s.ensureSchema(); err != nil {
		return
	}
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return
	}
	_, _ = s.db.Exec(`DELETE FROM wizard_sessions WHERE session_id = $1`, id)
}
