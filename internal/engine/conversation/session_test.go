package conversation

import (
	"testing"
	"time"
)

func testSequence(t *testing.T) Sequence {
	t.Helper()
	seq, err := NewSequence([]Agent{
		{ID: "analista", Name: "Ana", Role: "Análisis", Phase: 2},
		{ID: "consultor", Name: "Carlos", Role: "Consultoría", Phase: 1},
		{ID: "arquitecto", Name: "Alba", Role: "Arquitectura", Phase: 3},
	})
	if err != nil {
		t.Fatalf("NewSequence() error = %v", err)
	}
	return seq
}

func TestNewSequenceOrdersByPhase(t *testing.T) {
	seq := testSequence(t)
	if got := seq.First().ID; got != "consultor" {
		t.Fatalf("First() = %q, want consultor", got)
	}
	if got := seq.PhaseNames(); len(got) != 3 || got[0] != "Consultoría" {
		t.Fatalf("PhaseNames() = %v", got)
	}
	next, ok := seq.Next(seq.First())
	if !ok || next.ID != "analista" {
		t.Fatalf("Next(first) = %v, %v", next, ok)
	}
	last, _ := seq.ByPhase(3)
	if _, ok := seq.Next(last); ok {
		t.Fatalf("Next(last) ok = true, want false")
	}
}

func TestNewSequenceRejectsGapsAndDuplicates(t *testing.T) {
	cases := []struct {
		name   string
		agents []Agent
	}{
		{"empty", nil},
		{"gap", []Agent{{ID: "a", Phase: 1}, {ID: "b", Phase: 3}}},
		{"duplicate phase", []Agent{{ID: "a", Phase: 1}, {ID: "b", Phase: 1}}},
		{"starts at zero", []Agent{{ID: "a", Phase: 0}}},
		{"blank id", []Agent{{ID: "  ", Phase: 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSequence(tc.agents); err == nil {
				t.Fatalf("NewSequence(%v) error = nil, want error", tc.agents)
			}
		})
	}
}

func TestAdvanceCompletesPhaseAndUpdatesPercent(t *testing.T) {
	seq := testSequence(t)
	sess := NewSession("s1", "p1", "u1", seq)

	next, _ := seq.Next(sess.Current)
	if !sess.Advance(&next) {
		t.Fatalf("Advance() = false, want true")
	}
	if sess.Current.ID != "analista" || sess.Progress.CurrentPhase != 2 {
		t.Fatalf("after Advance: current = %s phase %d", sess.Current.ID, sess.Progress.CurrentPhase)
	}
	if len(sess.Progress.CompletedPhases) != 1 || sess.Progress.CompletedPhases[0] != 1 {
		t.Fatalf("CompletedPhases = %v, want [1]", sess.Progress.CompletedPhases)
	}
	wantPercent := 100.0 / 3.0
	if diff := sess.Progress.Percent - wantPercent; diff > 0.001 || diff < -0.001 {
		t.Fatalf("Percent = %v, want %v", sess.Progress.Percent, wantPercent)
	}
}

func TestAdvanceIsNoOpAtTerminalPhase(t *testing.T) {
	seq := testSequence(t)
	sess := NewSession("s1", "p1", "u1", seq)
	for {
		next, ok := seq.Next(sess.Current)
		if !ok {
			break
		}
		sess.Advance(&next)
	}
	if sess.Progress.CurrentPhase != 3 {
		t.Fatalf("terminal phase = %d, want 3", sess.Progress.CurrentPhase)
	}

	phantom := Agent{ID: "extra", Phase: 4}
	if sess.Advance(&phantom) {
		t.Fatalf("Advance past terminal = true, want false")
	}
	if sess.Advance(nil) {
		t.Fatalf("Advance(nil) = true, want false")
	}
	prev, _ := seq.ByPhase(1)
	if sess.Advance(&prev) {
		t.Fatalf("Advance backwards = true, want false")
	}
	if sess.Progress.CurrentPhase != 3 || len(sess.Progress.CompletedPhases) != 2 {
		t.Fatalf("no-op advance mutated state: %+v", sess.Progress)
	}
}

func TestUpdateFileDropsRegressingProgress(t *testing.T) {
	seq := testSequence(t)
	sess := NewSession("s1", "p1", "u1", seq)
	sess.AddFiles([]FileGeneration{{ID: "f1", FileName: "a.md", Progress: 40, Status: FileGenerating}})

	if sess.UpdateFile(FileGeneration{ID: "f1", FileName: "a.md", Progress: 30, Status: FileGenerating}) {
		t.Fatalf("UpdateFile(regressing) = true, want false")
	}
	if sess.Files[0].Progress != 40 {
		t.Fatalf("progress = %d, want 40", sess.Files[0].Progress)
	}
	if !sess.UpdateFile(FileGeneration{ID: "f1", FileName: "a.md", Progress: 100, Status: FileCompleted}) {
		t.Fatalf("UpdateFile(forward) = false, want true")
	}
	if got := sess.CompletedFiles(); len(got) != 1 || got[0].ID != "f1" {
		t.Fatalf("CompletedFiles() = %v", got)
	}
	if sess.UpdateFile(FileGeneration{ID: "unknown", Progress: 10}) {
		t.Fatalf("UpdateFile(unknown id) = true, want false")
	}
}

func TestAgentTurnsCountsOnlyThatAgent(t *testing.T) {
	seq := testSequence(t)
	sess := NewSession("s1", "p1", "u1", seq)
	now := time.Now()
	sess.Append(ChatMessage{ID: "1", Origin: OriginUser, Content: "hola", CreatedAt: now})
	sess.Append(ChatMessage{ID: "2", Origin: OriginAgent, AgentID: "consultor", Content: "hola!", CreatedAt: now})
	sess.Append(ChatMessage{ID: "3", Origin: OriginAgent, AgentID: "analista", Content: "sigo yo", CreatedAt: now})
	sess.Append(ChatMessage{ID: "4", Origin: OriginAgent, AgentID: "consultor", Content: "¿y el alcance?", CreatedAt: now})

	if got := sess.AgentTurns("consultor"); got != 2 {
		t.Fatalf("AgentTurns(consultor) = %d, want 2", got)
	}
	if !sess.HasAgentSpoken("analista") {
		t.Fatalf("HasAgentSpoken(analista) = false, want true")
	}
	if sess.HasAgentSpoken("arquitecto") {
		t.Fatalf("HasAgentSpoken(arquitecto) = true, want false")
	}
	if got := sess.UserMessages(); len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("UserMessages() = %v", got)
	}
}
