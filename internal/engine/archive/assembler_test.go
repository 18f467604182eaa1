package archive

import (
	"errors"
	"strings"
	"testing"

	"consultify/internal/engine/catalog"
	"consultify/internal/engine/conversation"
)

func newTestAssembler(t *testing.T) (*Assembler, conversation.Sequence) {
	t.Helper()
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}
	asm, err := NewAssembler(cat.Sequence())
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}
	return asm, cat.Sequence()
}

func TestTemplatesEmptyFilterMeansAllPhases(t *testing.T) {
	asm, _ := newTestAssembler(t)
	all := asm.Templates(nil)
	if len(all) != 13 {
		t.Fatalf("Templates(nil) = %d files, want 13", len(all))
	}
	phase1 := asm.Templates([]int{1})
	if len(phase1) != 2 {
		t.Fatalf("Templates([1]) = %d files, want 2", len(phase1))
	}
	for _, f := range phase1 {
		if f.Phase != 1 {
			t.Fatalf("Templates([1]) returned phase %d file %q", f.Phase, f.Name)
		}
	}
	if got := asm.Templates([]int{0, -1}); len(got) != 13 {
		t.Fatalf("Templates(invalid phases) = %d files, want all 13", len(got))
	}
}

func TestAssembleWithoutSession(t *testing.T) {
	asm, _ := newTestAssembler(t)
	ar := asm.Assemble(nil, nil)
	if ar.Name != "proyecto-consultify" {
		t.Fatalf("Name = %q", ar.Name)
	}
	if len(ar.Files) != 13 {
		t.Fatalf("Files = %d, want 13", len(ar.Files))
	}
	total := 0
	for _, f := range ar.Files {
		if f.Size != len(f.Content) {
			t.Fatalf("file %q size = %d, content = %d", f.Name, f.Size, len(f.Content))
		}
		total += f.Size
	}
	if ar.TotalSize != total {
		t.Fatalf("TotalSize = %d, want %d", ar.TotalSize, total)
	}
	if !strings.HasPrefix(ar.DownloadHandle, "/downloads/") || !strings.HasSuffix(ar.DownloadHandle, ".zip") {
		t.Fatalf("DownloadHandle = %q", ar.DownloadHandle)
	}
}

func TestAssembleFreshIdentityPerCall(t *testing.T) {
	asm, _ := newTestAssembler(t)
	first := asm.Assemble(nil, nil)
	second := asm.Assemble(nil, nil)
	if first.ID == second.ID || first.DownloadHandle == second.DownloadHandle {
		t.Fatalf("archives share identity: %q vs %q", first.ID, second.ID)
	}
	if len(first.Files) != len(second.Files) || first.TotalSize != second.TotalSize {
		t.Fatalf("archive content not idempotent")
	}
}

func TestAssembleMergesCompletedSessionFiles(t *testing.T) {
	asm, seq := newTestAssembler(t)
	sess := conversation.NewSession("s1", "tienda", "u1", seq)
	sess.AddFiles([]conversation.FileGeneration{
		{ID: "f1", FileName: "notas-propias.md", Status: conversation.FileCompleted, Progress: 100, AgentID: "consultor-virtual", Type: conversation.FileDocumentation},
		{ID: "f2", FileName: "pendiente.md", Status: conversation.FileGenerating, Progress: 50, AgentID: "consultor-virtual"},
		// Collides with a canonical template; the template wins.
		{ID: "f3", FileName: "brief-proyecto.md", Status: conversation.FileCompleted, Progress: 100, AgentID: "consultor-virtual"},
	})

	ar := asm.Assemble([]int{1}, sess)
	if ar.Name != "proyecto-tienda" {
		t.Fatalf("Name = %q, want proyecto-tienda", ar.Name)
	}
	var custom *conversation.ProjectFile
	briefs := 0
	for i, f := range ar.Files {
		switch f.Name {
		case "notas-propias.md":
			custom = &ar.Files[i]
		case "brief-proyecto.md":
			briefs++
		case "pendiente.md":
			t.Fatalf("incomplete file %q made it into the archive", f.Name)
		}
	}
	if briefs != 1 {
		t.Fatalf("brief-proyecto.md appears %d times, want 1", briefs)
	}
	if custom == nil {
		t.Fatalf("completed session file missing from archive: %v", ar.Files)
	}
	if custom.Phase != 1 || custom.Path != "generado/notas-propias.md" {
		t.Fatalf("custom file = %+v", custom)
	}
	if custom.Content == "" || custom.Size != len(custom.Content) {
		t.Fatalf("custom file content/size = %q/%d", custom.Content, custom.Size)
	}
}

func TestAssemblePhaseFilterExcludesOtherAgentsFiles(t *testing.T) {
	asm, seq := newTestAssembler(t)
	sess := conversation.NewSession("s1", "p1", "u1", seq)
	sess.AddFiles([]conversation.FileGeneration{
		{ID: "f1", FileName: "extra-arquitectura.md", Status: conversation.FileCompleted, Progress: 100, AgentID: "software-architect"},
	})

	ar := asm.Assemble([]int{1}, sess)
	for _, f := range ar.Files {
		if f.Name == "extra-arquitectura.md" {
			t.Fatalf("phase-4 file leaked into phase-1 archive")
		}
	}

	full := asm.Assemble(nil, sess)
	found := false
	for _, f := range full.Files {
		if f.Name == "extra-arquitectura.md" && f.Phase == 4 {
			found = true
		}
	}
	if !found {
		t.Fatalf("phase-4 file missing from unfiltered archive")
	}
}

func TestWithErrorNoteAppendsNote(t *testing.T) {
	asm, _ := newTestAssembler(t)
	ar := asm.Assemble([]int{1}, nil)
	before := len(ar.Files)
	beforeSize := ar.TotalSize

	noted := WithErrorNote(ar, errors.New("bucket unavailable"))
	if len(noted.Files) != before+1 {
		t.Fatalf("Files = %d, want %d", len(noted.Files), before+1)
	}
	last := noted.Files[len(noted.Files)-1]
	if last.Name != "NOTAS-EXPORTACION.md" || last.Type != conversation.FileDocumentation {
		t.Fatalf("note file = %+v", last)
	}
	if noted.TotalSize != beforeSize+last.Size {
		t.Fatalf("TotalSize = %d, want %d", noted.TotalSize, beforeSize+last.Size)
	}
}
