package filegen

import (
	"testing"

	"consultify/internal/engine/catalog"
	"consultify/internal/engine/conversation"
)

var testManifests = []catalog.TriggerManifest{
	{Key: "exploración inicial", Files: []string{"vision-general.md"}},
	{Key: "idea refinada", Files: []string{"resumen-idea.md", "publico-objetivo.md"}},
	{Key: "conversación completada", Files: []string{"brief-proyecto.md", "api-spec.yml"}},
}

func TestSelectManifestClampsTurn(t *testing.T) {
	cases := []struct {
		turn int
		want string
	}{
		{-3, "exploración inicial"},
		{0, "exploración inicial"},
		{1, "exploración inicial"},
		{2, "idea refinada"},
		{3, "conversación completada"},
		{9, "conversación completada"},
	}
	for _, tc := range cases {
		got, ok := SelectManifest(testManifests, tc.turn)
		if !ok {
			t.Fatalf("SelectManifest(turn=%d) ok = false", tc.turn)
		}
		if got.Key != tc.want {
			t.Fatalf("SelectManifest(turn=%d) = %q, want %q", tc.turn, got.Key, tc.want)
		}
	}

	if _, ok := SelectManifest(nil, 1); ok {
		t.Fatalf("SelectManifest(nil) ok = true, want false")
	}
}

func TestPlanProducesPendingRecords(t *testing.T) {
	agent := conversation.Agent{ID: "consultor-virtual", Phase: 1}
	files := Plan(agent, testManifests, 2)
	if len(files) != 2 {
		t.Fatalf("Plan(turn=2) produced %d files, want 2", len(files))
	}
	seen := make(map[string]bool)
	for _, fg := range files {
		if fg.ID == "" || seen[fg.ID] {
			t.Fatalf("file %q has missing or duplicate id %q", fg.FileName, fg.ID)
		}
		seen[fg.ID] = true
		if fg.Status != conversation.FilePending || fg.Progress != 0 {
			t.Fatalf("file %q = %s/%d, want pending/0", fg.FileName, fg.Status, fg.Progress)
		}
		if fg.AgentID != agent.ID {
			t.Fatalf("file %q agent = %q, want %q", fg.FileName, fg.AgentID, agent.ID)
		}
	}
	if files[0].FileName != "resumen-idea.md" || files[1].FileName != "publico-objetivo.md" {
		t.Fatalf("Plan file names = %q, %q", files[0].FileName, files[1].FileName)
	}
}

func TestPlanWithoutManifestsIsEmpty(t *testing.T) {
	agent := conversation.Agent{ID: "ghost", Phase: 1}
	if files := Plan(agent, nil, 1); files != nil {
		t.Fatalf("Plan(no manifests) = %v, want nil", files)
	}
}

func TestPlanSkipsBlankNames(t *testing.T) {
	manifests := []catalog.TriggerManifest{{Key: "k", Files: []string{" ", "real.md", ""}}}
	files := Plan(conversation.Agent{ID: "a"}, manifests, 1)
	if len(files) != 1 || files[0].FileName != "real.md" {
		t.Fatalf("Plan with blanks = %v", files)
	}
}

func TestInferType(t *testing.T) {
	cases := []struct {
		name string
		want conversation.FileType
	}{
		{"brief-proyecto.md", conversation.FileDocumentation},
		{"config-proyecto.json", conversation.FileConfiguration},
		{"docker-compose.yml", conversation.FileConfiguration},
		{"modelo-datos.sql", conversation.FileDatabase},
		{"seed.py", conversation.FileCode},
		{"main.go", conversation.FileCode},
		{"LICENSE", conversation.FileOther},
		// "api" anywhere in the name wins over the extension.
		{"api-endpoints.md", conversation.FileAPI},
		{"api-spec.yml", conversation.FileAPI},
		{"rapidez.md", conversation.FileAPI},
	}
	for _, tc := range cases {
		if got := InferType(tc.name); got != tc.want {
			t.Fatalf("InferType(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
