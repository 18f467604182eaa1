package conversation

import (
	"log"
	"strings"
	"time"
)

// Session is the aggregate root for one wizard conversation. The engine
// assumes single-writer access per session; callers serialize writes.
type Session struct {
	ID        string           `json:"id"`
	ProjectID string           `json:"project_id"`
	UserID    string           `json:"user_id,omitempty"`
	Current   Agent            `json:"current_agent"`
	Messages  []ChatMessage    `json:"messages"`
	Files     []FileGeneration `json:"files,omitempty"`
	Progress  ProjectProgress  `json:"progress"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewSession starts a session at phase 1 of the given sequence.
func NewSession(id, projectID, userID string, seq Sequence) *Session {
	first := seq.First()
	return &Session{
		ID:        strings.TrimSpace(id),
		ProjectID: strings.TrimSpace(projectID),
		UserID:    strings.TrimSpace(userID),
		Current:   first,
		Active:    true,
		CreatedAt: time.Now(),
		Progress: ProjectProgress{
			CurrentPhase: first.Phase,
			TotalPhases:  seq.Len(),
			PhaseNames:   seq.PhaseNames(),
		},
	}
}

// Append adds a message to the log. The log is append-only; existing
// entries are never edited.
func (s *Session) Append(msg ChatMessage) {
	s.Messages = append(s.Messages, msg)
}

// AgentTurns counts messages authored by the given agent.
func (s *Session) AgentTurns(agentID string) int {
	n := 0
	for _, m := range s.Messages {
		if m.Origin == OriginAgent && m.AgentID == agentID {
			n++
		}
	}
	return n
}

// HasAgentSpoken reports whether the agent has any message in the log.
func (s *Session) HasAgentSpoken(agentID string) bool {
	return s.AgentTurns(agentID) > 0
}

// UserMessages returns the user-authored slice of the log, in order.
func (s *Session) UserMessages() []ChatMessage {
	out := make([]ChatMessage, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Origin == OriginUser {
			out = append(out, m)
		}
	}
	return out
}

// AddFiles records newly triggered file generations on the session.
func (s *Session) AddFiles(files []FileGeneration) {
	s.Files = append(s.Files, files...)
}

// UpdateFile replaces the stored record with the same ID. Progress may
// only move forward; stale updates are dropped.
func (s *Session) UpdateFile(fg FileGeneration) bool {
	for i, cur := range s.Files {
		if cur.ID != fg.ID {
			continue
		}
		if fg.Progress < cur.Progress {
			return false
		}
		s.Files[i] = fg
		return true
	}
	return false
}

// CompletedFiles returns file generations that reached completed status.
func (s *Session) CompletedFiles() []FileGeneration {
	out := make([]FileGeneration, 0, len(s.Files))
	for _, fg := range s.Files {
		if fg.Status == FileCompleted {
			out = append(out, fg)
		}
	}
	return out
}

// Advance moves the session to the next agent. It is only legal after a
// generated response signaled a transition with a resolved next agent.
// Advancing past the terminal phase, or with no next agent, is a logged
// no-op so callers may invoke it speculatively.
func (s *Session) Advance(next *Agent) bool {
	if next == nil {
		log.Printf("session %s: transition ignored, no next agent resolved", s.ID)
		return false
	}
	if s.Progress.CurrentPhase >= s.Progress.TotalPhases {
		log.Printf("session %s: transition ignored, already at terminal phase %d", s.ID, s.Progress.CurrentPhase)
		return false
	}
	if next.Phase <= s.Current.Phase {
		log.Printf("session %s: transition ignored, agent %s does not advance phase %d", s.ID, next.ID, s.Current.Phase)
		return false
	}
	completed := s.Current.Phase
	if !containsInt(s.Progress.CompletedPhases, completed) {
		s.Progress.CompletedPhases = append(s.Progress.CompletedPhases, completed)
	}
	s.Current = *next
	s.Progress.CurrentPhase = next.Phase
	s.Progress.Percent = float64(len(s.Progress.CompletedPhases)) / float64(s.Progress.TotalPhases) * 100
	return true
}

func containsInt(values []int, want int) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
