// Package filegen maps conversational context to deliverable file
// manifests and simulates their generation progress.
package filegen

import (
	"strings"

	"consultify/internal/engine/catalog"
	"consultify/internal/engine/conversation"

	"github.com/google/uuid"
)

// SelectManifest picks the trigger manifest for the given agent turn
// count, clamped to the manifest bounds: turn 1 selects the first key,
// any turn at or past the end selects the last.
func SelectManifest(manifests []catalog.TriggerManifest, turn int) (catalog.TriggerManifest, bool) {
	if len(manifests) == 0 {
		return catalog.TriggerManifest{}, false
	}
	idx := turn - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(manifests) {
		idx = len(manifests) - 1
	}
	return manifests[idx], true
}

// Plan expands the manifest selected by the turn count into fresh
// FileGeneration records, all pending at zero progress. An agent with
// no manifests yields an empty plan; simulated generation is
// deliberately permissive about unknown agents.
func Plan(agent conversation.Agent, manifests []catalog.TriggerManifest, turn int) []conversation.FileGeneration {
	manifest, ok := SelectManifest(manifests, turn)
	if !ok {
		return nil
	}
	out := make([]conversation.FileGeneration, 0, len(manifest.Files))
	for _, name := range manifest.Files {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, conversation.FileGeneration{
			ID:       uuid.NewString(),
			FileName: name,
			Type:     InferType(name),
			Progress: 0,
			Status:   conversation.FilePending,
			AgentID:  agent.ID,
		})
	}
	return out
}

// InferType classifies a file by name. Best effort: a name containing
// "api" wins over its extension, which can misclassify documentation
// about an API; callers treat the tag as cosmetic.
func InferType(name string) conversation.FileType {
	lower := strings.ToLower(strings.TrimSpace(name))
	if strings.Contains(lower, "api") {
		return conversation.FileAPI
	}
	switch {
	case strings.HasSuffix(lower, ".md"):
		return conversation.FileDocumentation
	case strings.HasSuffix(lower, ".json"), strings.HasSuffix(lower, ".yml"),
		strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".toml"):
		return conversation.FileConfiguration
	case strings.HasSuffix(lower, ".sql"):
		return conversation.FileDatabase
	case strings.HasSuffix(lower, ".go"), strings.HasSuffix(lower, ".ts"),
		strings.HasSuffix(lower, ".js"), strings.HasSuffix(lower, ".py"):
		return conversation.FileCode
	default:
		return conversation.FileOther
	}
}
