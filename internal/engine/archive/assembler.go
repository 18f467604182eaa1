// Package archive folds the canonical per-phase template files together
// with a session's completed file generations into an exportable,
// immutable archive descriptor.
package archive

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"consultify/internal/engine/conversation"
	"consultify/internal/engine/filegen"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed data/templates.yaml
var templatesYAML []byte

type templateFile struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	Phase   int    `yaml:"phase"`
	Agent   string `yaml:"agent"`
	Content string `yaml:"content"`
}

// Assembler serves archive requests from the canonical template set.
// It is immutable after construction and safe for concurrent use.
type Assembler struct {
	templates []conversation.ProjectFile
	sequence  conversation.Sequence
}

// NewAssembler parses the embedded template content. The sequence is
// used to resolve the phase of session-generated files by their owning
// agent.
func NewAssembler(seq conversation.Sequence) (*Assembler, error) {
	var doc struct {
		Files []templateFile `yaml:"files"`
	}
	if err := yaml.Unmarshal(templatesYAML, &doc); err != nil {
		return nil, fmt.Errorf("archive: parse templates: %w", err)
	}
	templates := make([]conversation.ProjectFile, 0, len(doc.Files))
	for _, f := range doc.Files {
		if strings.TrimSpace(f.Name) == "" {
			continue
		}
		templates = append(templates, conversation.ProjectFile{
			Name:    f.Name,
			Path:    f.Path,
			Content: f.Content,
			Type:    filegen.InferType(f.Name),
			Phase:   f.Phase,
			AgentID: f.Agent,
			Size:    len(f.Content),
		})
	}
	return &Assembler{templates: templates, sequence: seq}, nil
}

// Templates returns the canonical files for the given phases. An empty
// filter means all phases.
func (a *Assembler) Templates(phases []int) []conversation.ProjectFile {
	wanted := phaseSet(phases)
	out := make([]conversation.ProjectFile, 0, len(a.templates))
	for _, f := range a.templates {
		if len(wanted) > 0 && !wanted[f.Phase] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Assemble produces a new archive from the phase-filtered templates
// plus the session's completed file generations. Files are deduplicated
// by name, first occurrence winning, with templates taking precedence.
// Content is idempotent for a given (filter, session snapshot) pair;
// the id and handle are fresh on every call.
func (a *Assembler) Assemble(phases []int, sess *conversation.Session) conversation.Archive {
	files := a.Templates(phases)
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f.Name] = true
	}

	if sess != nil {
		wanted := phaseSet(phases)
		completed := sess.CompletedFiles()
		sort.SliceStable(completed, func(i, j int) bool { return completed[i].FileName < completed[j].FileName })
		for _, fg := range completed {
			if seen[fg.FileName] {
				continue
			}
			phase := sess.Progress.CurrentPhase
			if ag, ok := a.sequence.ByID(fg.AgentID); ok {
				phase = ag.Phase
			}
			if len(wanted) > 0 && !wanted[phase] {
				continue
			}
			content := generatedContent(fg)
			files = append(files, conversation.ProjectFile{
				Name:    fg.FileName,
				Path:    fmt.Sprintf("generado/%s", fg.FileName),
				Content: content,
				Type:    fg.Type,
				Phase:   phase,
				AgentID: fg.AgentID,
				Size:    len(content),
			})
			seen[fg.FileName] = true
		}
	}

	total := 0
	for _, f := range files {
		total += f.Size
	}
	id := uuid.NewString()
	return conversation.Archive{
		ID:             id,
		Name:           archiveName(sess),
		Files:          files,
		TotalSize:      total,
		CreatedAt:      time.Now(),
		DownloadHandle: fmt.Sprintf("/downloads/%s.zip", id),
	}
}

// WithErrorNote returns a copy of the archive carrying an embedded
// error-note file, used when export post-processing partially fails.
func WithErrorNote(ar conversation.Archive, cause error) conversation.Archive {
	note := fmt.Sprintf("# Nota de exportación\n\nEl paquete se generó parcialmente: %v\n", cause)
	ar.Files = append(ar.Files, conversation.ProjectFile{
		Name:    "NOTAS-EXPORTACION.md",
		Path:    "NOTAS-EXPORTACION.md",
		Content: note,
		Type:    conversation.FileDocumentation,
		Size:    len(note),
	})
	ar.TotalSize += len(note)
	return ar
}

func archiveName(sess *conversation.Session) string {
	if sess != nil && strings.TrimSpace(sess.ProjectID) != "" {
		return fmt.Sprintf("proyecto-%s", strings.TrimSpace(sess.ProjectID))
	}
	return "proyecto-consultify"
}

// generatedContent synthesizes minimal content for a session-generated
// file; the simulation produces records, not real payloads.
func generatedContent(fg conversation.FileGeneration) string {
	return fmt.Sprintf("# %s\n\nDocumento generado durante la conversación (agente: %s).\n", fg.FileName, fg.AgentID)
}

func phaseSet(phases []int) map[int]bool {
	set := make(map[int]bool, len(phases))
	for _, p := range phases {
		if p > 0 {
			set[p] = true
		}
	}
	return set
}

