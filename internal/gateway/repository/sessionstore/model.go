package sessionstore

import (
	"strings"
	"time"
)

// State is the persisted shape of one wizard session: identity, current
// phase, and the phase payload (messages, files, completed phases). It
// is intentionally storage-agnostic; both backends round-trip it.
type State struct {
	SessionID       string          `json:"session_id"`
	ProjectID       string          `json:"project_id"`
	UserID          string          `json:"user_id,omitempty"`
	CurrentPhase    int             `json:"current_phase"`
	CompletedPhases []int           `json:"completed_phases,omitempty"`
	IsActive        bool            `json:"is_active,omitempty"`
	Messages        []MessageRecord `json:"messages,omitempty"`
	Files           []FileRecord    `json:"files,omitempty"`
	CreatedAt       time.Time       `json:"created_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at,omitempty"`
}

type MessageRecord struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Origin    string    `json:"origin"`
	AgentID   string    `json:"agent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type FileRecord struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	Type     string `json:"type"`
	Progress int    `json:"progress"`
	Status   string `json:"status"`
	AgentID  string `json:"agent_id"`
}

func normalizeState(state State) State {
	state.SessionID = strings.TrimSpace(state.SessionID)
	state.ProjectID = strings.TrimSpace(state.ProjectID)
	state.UserID = strings.TrimSpace(state.UserID)
	if state.ProjectID == "" {
		state.ProjectID = state.SessionID
	}
	if state.CurrentPhase < 1 {
		state.CurrentPhase = 1
	}
	return state
}

type rowScanner interface {
	Scan(dest ...any) error
}
