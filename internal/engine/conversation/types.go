package conversation

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Origin identifies who authored a chat message.
type Origin string

const (
	OriginUser   Origin = "user"
	OriginAgent  Origin = "agent"
	OriginSystem Origin = "system"
)

// FileStatus tracks the lifecycle of a simulated file generation.
// pending -> generating -> completed, or error. Terminal states are
// never left once reached.
type FileStatus string

const (
	FilePending    FileStatus = "pending"
	FileGenerating FileStatus = "generating"
	FileCompleted  FileStatus = "completed"
	FileError      FileStatus = "error"
)

// FileType is a coarse classification derived from a file name.
type FileType string

const (
	FileDocumentation FileType = "documentation"
	FileConfiguration FileType = "configuration"
	FileDatabase      FileType = "database"
	FileAPI           FileType = "api"
	FileCode          FileType = "code"
	FileOther         FileType = "other"
)

// Agent describes one of the fixed virtual specialists. Agents are
// created once at startup and never mutated.
type Agent struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Phase       int      `json:"phase"`
	Description string   `json:"description,omitempty"`
	Expertise   []string `json:"expertise,omitempty"`
}

// ChatMessage is one utterance in a session log. Append-only.
type ChatMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Origin    Origin    `json:"origin"`
	AgentID   string    `json:"agent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FileGeneration is a tracked, progressing record for one simulated
// deliverable. Progress is monotonically non-decreasing while active.
type FileGeneration struct {
	ID       string     `json:"id"`
	FileName string     `json:"file_name"`
	Type     FileType   `json:"type"`
	Progress int        `json:"progress"`
	Status   FileStatus `json:"status"`
	AgentID  string     `json:"agent_id"`
}

// ProjectProgress summarizes how far along the five-phase wizard is.
type ProjectProgress struct {
	CurrentPhase    int      `json:"current_phase"`
	CompletedPhases []int    `json:"completed_phases,omitempty"`
	TotalPhases     int      `json:"total_phases"`
	PhaseNames      []string `json:"phase_names,omitempty"`
	Percent         float64  `json:"percent"`
}

// ProjectFile is a resolved, content-bearing deliverable.
type ProjectFile struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Content string   `json:"content"`
	Type    FileType `json:"type"`
	Phase   int      `json:"phase"`
	AgentID string   `json:"agent_id,omitempty"`
	Size    int      `json:"size"`
}

// Archive is an exportable bundle of resolved files. Immutable once
// created; regenerating yields a new Archive.
type Archive struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Files          []ProjectFile `json:"files"`
	TotalSize      int           `json:"total_size"`
	CreatedAt      time.Time     `json:"created_at"`
	DownloadHandle string        `json:"download_handle"`
}

// Sequence is the fixed, totally ordered list of agents, one per phase.
type Sequence struct {
	agents []Agent
}

// NewSequence validates and orders the agent list. Phases must be
// strictly increasing starting at 1 with no gaps.
func NewSequence(agents []Agent) (Sequence, error) {
	if len(agents) == 0 {
		return Sequence{}, fmt.Errorf("agent sequence is empty")
	}
	ordered := make([]Agent, len(agents))
	copy(ordered, agents)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Phase < ordered[j].Phase })
	for i, ag := range ordered {
		if strings.TrimSpace(ag.ID) == "" {
			return Sequence{}, fmt.Errorf("agent at phase %d has no id", ag.Phase)
		}
		if ag.Phase != i+1 {
			return Sequence{}, fmt.Errorf("agent %s has phase %d, want %d", ag.ID, ag.Phase, i+1)
		}
	}
	return Sequence{agents: ordered}, nil
}

func (s Sequence) Len() int { return len(s.agents) }

// First returns the phase-1 agent.
func (s Sequence) First() Agent {
	if len(s.agents) == 0 {
		return Agent{}
	}
	return s.agents[0]
}

func (s Sequence) ByID(id string) (Agent, bool) {
	id = strings.TrimSpace(id)
	for _, ag := range s.agents {
		if ag.ID == id {
			return ag, true
		}
	}
	return Agent{}, false
}

func (s Sequence) ByPhase(phase int) (Agent, bool) {
	if phase < 1 || phase > len(s.agents) {
		return Agent{}, false
	}
	return s.agents[phase-1], true
}

// Next returns the agent owning the phase after ag, if any.
func (s Sequence) Next(ag Agent) (Agent, bool) {
	return s.ByPhase(ag.Phase + 1)
}

// Prev returns the agent owning the phase before ag, if any.
func (s Sequence) Prev(ag Agent) (Agent, bool) {
	return s.ByPhase(ag.Phase - 1)
}

func (s Sequence) Agents() []Agent {
	out := make([]Agent, len(s.agents))
	copy(out, s.agents)
	return out
}

func (s Sequence) PhaseNames() []string {
	names := make([]string, 0, len(s.agents))
	for _, ag := range s.agents {
		names = append(names, ag.Role)
	}
	return names
}
