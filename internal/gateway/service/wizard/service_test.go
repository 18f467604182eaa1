package wizard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"consultify/internal/engine/catalog"
	"consultify/internal/engine/conversation"
	"consultify/internal/engine/responder"
	"consultify/internal/gateway/repository/sessionstore"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *sessionstore.Store) {
	t.Helper()
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}
	store := sessionstore.New(filepath.Join(t.TempDir(), "sessions.json"))
	opts = append([]Option{WithSeed(11)}, opts...)
	return New(cat, store, opts...), store
}

// driveToTransition submits turns until the current agent hands off.
func driveToTransition(t *testing.T, svc *Service, sessionID string) SubmitResult {
	t.Helper()
	for i := 0; i < 4; i++ {
		res, err := svc.SubmitMessage(context.Background(), sessionID, "cuéntame qué necesitas saber")
		if err != nil {
			t.Fatalf("SubmitMessage() error = %v", err)
		}
		if res.Transitioned {
			t.Fatalf("filler turn %d transitioned unexpectedly", i)
		}
	}
	res, err := svc.SubmitMessage(context.Background(), sessionID, "perfecto, vamos con eso")
	if err != nil {
		t.Fatalf("SubmitMessage(agreement) error = %v", err)
	}
	if !res.Transitioned {
		t.Fatalf("agreement after %d turns did not transition", 4)
	}
	return res
}

func TestCreateSessionStartsAtPhaseOne(t *testing.T) {
	svc, store := newTestService(t)
	sess, err := svc.CreateSession("proyecto-1", "user-1")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if sess.Current.ID != "consultor-virtual" || sess.Progress.CurrentPhase != 1 {
		t.Fatalf("new session = %s phase %d", sess.Current.ID, sess.Progress.CurrentPhase)
	}
	if sess.Progress.TotalPhases != 5 || !sess.Active {
		t.Fatalf("progress = %+v active = %v", sess.Progress, sess.Active)
	}
	if _, ok := store.Get(sess.ID); !ok {
		t.Fatalf("session %s not persisted", sess.ID)
	}
}

func TestSubmitMessageRejectsBlankInput(t *testing.T) {
	svc, _ := newTestService(t)
	sess, _ := svc.CreateSession("p1", "u1")
	if _, err := svc.SubmitMessage(context.Background(), sess.ID, "   "); !errors.Is(err, responder.ErrEmptyMessage) {
		t.Fatalf("SubmitMessage(blank) error = %v, want ErrEmptyMessage", err)
	}
}

func TestSubmitMessageUnknownSession(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.SubmitMessage(context.Background(), "nope", "hola"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("SubmitMessage(unknown) error = %v, want ErrSessionNotFound", err)
	}
	if _, err := svc.GetSession("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("GetSession(unknown) error = %v, want ErrSessionNotFound", err)
	}
}

func TestSubmitMessageAppendsBothMessages(t *testing.T) {
	svc, _ := newTestService(t)
	created, _ := svc.CreateSession("p1", "u1")

	res, err := svc.SubmitMessage(context.Background(), created.ID, "  quiero una app de recetas  ")
	if err != nil {
		t.Fatalf("SubmitMessage() error = %v", err)
	}
	if res.UserMessage.Content != "quiero una app de recetas" {
		t.Fatalf("user content = %q, want trimmed", res.UserMessage.Content)
	}
	if res.AgentMessage.AgentID != "consultor-virtual" || res.AgentMessage.Content == "" {
		t.Fatalf("agent message = %+v", res.AgentMessage)
	}

	sess, _ := svc.GetSession(created.ID)
	if len(sess.Messages) != 2 {
		t.Fatalf("message log has %d entries, want 2", len(sess.Messages))
	}
	if sess.Messages[0].Origin != conversation.OriginUser || sess.Messages[1].Origin != conversation.OriginAgent {
		t.Fatalf("log order = %v, %v", sess.Messages[0].Origin, sess.Messages[1].Origin)
	}
}

func TestAgreementTransitionTracksFiles(t *testing.T) {
	svc, store := newTestService(t)
	created, _ := svc.CreateSession("p1", "u1")

	res := driveToTransition(t, svc, created.ID)
	if len(res.NewFiles) == 0 {
		t.Fatalf("transition produced no files")
	}
	if res.Progress.CurrentPhase != 2 {
		t.Fatalf("CurrentPhase = %d, want 2", res.Progress.CurrentPhase)
	}

	sess, _ := svc.GetSession(created.ID)
	if sess.Current.ID != "business-analyst" {
		t.Fatalf("current agent = %s, want business-analyst", sess.Current.ID)
	}
	if svc.sim.ActiveCount() != len(res.NewFiles) {
		t.Fatalf("simulator tracks %d records, want %d", svc.sim.ActiveCount(), len(res.NewFiles))
	}

	state, ok := store.Get(created.ID)
	if !ok || state.CurrentPhase != 2 || len(state.Files) != len(res.NewFiles) {
		t.Fatalf("persisted state = %+v", state)
	}
}

func TestApplyTickCompletesFilesAndPublishes(t *testing.T) {
	svc, store := newTestService(t)
	created, _ := svc.CreateSession("p1", "u1")
	res := driveToTransition(t, svc, created.ID)

	_, events, cancel := svc.Subscribe(created.ID)
	defer cancel()

	for i := 0; i < 20 && svc.sim.ActiveCount() > 0; i++ {
		svc.applyTick()
	}
	if svc.sim.ActiveCount() != 0 {
		t.Fatalf("simulator still active after 20 ticks")
	}

	sess, _ := svc.GetSession(created.ID)
	if got := len(sess.CompletedFiles()); got != len(res.NewFiles) {
		t.Fatalf("completed %d files, want %d", got, len(res.NewFiles))
	}

	sawProgress := false
	for {
		select {
		case ev := <-events:
			if ev.Type == EventFileProgress && ev.File != nil {
				sawProgress = true
			}
			continue
		default:
		}
		break
	}
	if !sawProgress {
		t.Fatalf("no file_progress events were published")
	}

	state, _ := store.Get(created.ID)
	for _, f := range state.Files {
		if f.Status != string(conversation.FileCompleted) || f.Progress != 100 {
			t.Fatalf("persisted file = %+v, want completed/100", f)
		}
	}
}

func TestReadinessReflectsConversation(t *testing.T) {
	svc, _ := newTestService(t)
	created, _ := svc.CreateSession("p1", "u1")

	report, err := svc.Readiness(created.ID)
	if err != nil {
		t.Fatalf("Readiness() error = %v", err)
	}
	if report.Confidence != 0 || report.IsReady {
		t.Fatalf("fresh session readiness = %+v", report)
	}

	long := "necesito inventario, ventas y reportes para tres sucursales con facturación"
	for i := 0; i < 2; i++ {
		if _, err := svc.SubmitMessage(context.Background(), created.ID, long); err != nil {
			t.Fatalf("SubmitMessage() error = %v", err)
		}
	}
	if _, err := svc.SubmitMessage(context.Background(), created.ID, long+" perfecto, sigamos"); err != nil {
		t.Fatalf("SubmitMessage() error = %v", err)
	}

	report, err = svc.Readiness(created.ID)
	if err != nil {
		t.Fatalf("Readiness() error = %v", err)
	}
	if !report.IsReady || report.Confidence != 1.0 {
		t.Fatalf("engaged readiness = %+v, want ready at 1.0", report)
	}
}

func TestResetSessionCancelsSimulations(t *testing.T) {
	svc, store := newTestService(t)
	created, _ := svc.CreateSession("p1", "u1")
	driveToTransition(t, svc, created.ID)

	if svc.sim.ActiveCount() == 0 {
		t.Fatalf("expected active simulations before reset")
	}
	svc.ResetSession(created.ID)
	if svc.sim.ActiveCount() != 0 {
		t.Fatalf("ActiveCount after reset = %d, want 0", svc.sim.ActiveCount())
	}
	if _, ok := store.Get(created.ID); ok {
		t.Fatalf("state survived reset")
	}
	if _, err := svc.GetSession(created.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("GetSession after reset error = %v", err)
	}
}

func TestRestoreFromStoreResumesActiveFiles(t *testing.T) {
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "sessions.json")
	store := sessionstore.New(path)

	first := New(cat, store, WithSeed(11))
	created, _ := first.CreateSession("p1", "u1")
	driveToTransition(t, first, created.ID)

	// A fresh service instance over the same store, as after a restart.
	second := New(cat, sessionstore.New(path), WithSeed(12))
	sess, err := second.GetSession(created.ID)
	if err != nil {
		t.Fatalf("GetSession after restart error = %v", err)
	}
	if sess.Current.ID != "business-analyst" || len(sess.Messages) == 0 {
		t.Fatalf("restored session = %+v", sess)
	}
	if second.sim.ActiveCount() == 0 {
		t.Fatalf("restored session did not resume file simulations")
	}

	for i := 0; i < 20 && second.sim.ActiveCount() > 0; i++ {
		second.applyTick()
	}
	restored, _ := second.GetSession(created.ID)
	if len(restored.CompletedFiles()) != len(restored.Files) {
		t.Fatalf("resumed files did not complete: %+v", restored.Files)
	}
}

func TestSnapshotIsolatesCallers(t *testing.T) {
	svc, _ := newTestService(t)
	created, _ := svc.CreateSession("p1", "u1")
	if _, err := svc.SubmitMessage(context.Background(), created.ID, "hola"); err != nil {
		t.Fatalf("SubmitMessage() error = %v", err)
	}

	snap, _ := svc.GetSession(created.ID)
	snap.Messages[0].Content = "mutated"
	snap.Progress.CompletedPhases = append(snap.Progress.CompletedPhases, 99)

	again, _ := svc.GetSession(created.ID)
	if again.Messages[0].Content == "mutated" {
		t.Fatalf("snapshot mutation leaked into engine state")
	}
	if len(again.Progress.CompletedPhases) != 0 {
		t.Fatalf("CompletedPhases leaked: %v", again.Progress.CompletedPhases)
	}
}

func TestSubscribeReplaysSnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	created, _ := svc.CreateSession("p1", "u1")
	if _, err := svc.SubmitMessage(context.Background(), created.ID, "hola"); err != nil {
		t.Fatalf("SubmitMessage() error = %v", err)
	}

	snapshot, _, cancel := svc.Subscribe(created.ID)
	defer cancel()
	if len(snapshot) != 2 {
		t.Fatalf("snapshot has %d events, want 2 messages", len(snapshot))
	}
	var lastSeq int64
	for _, ev := range snapshot {
		if ev.Type != EventMessage || ev.Message == nil {
			t.Fatalf("snapshot event = %+v", ev)
		}
		if ev.Seq <= lastSeq {
			t.Fatalf("sequence not monotone: %d after %d", ev.Seq, lastSeq)
		}
		lastSeq = ev.Seq
	}
}
