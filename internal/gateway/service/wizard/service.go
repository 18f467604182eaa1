// Package wizard orchestrates the conversation engine: it owns live
// sessions, serializes writes per session, drives the file-generation
// simulator, and persists state through the session store.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"consultify/internal/engine/catalog"
	"consultify/internal/engine/conversation"
	"consultify/internal/engine/filegen"
	"consultify/internal/engine/handoff"
	"consultify/internal/engine/responder"
	"consultify/internal/gateway/repository/sessionstore"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("wizard: session not found")

const defaultTickInterval = 800 * time.Millisecond

// SubmitResult is the outcome of one user turn.
type SubmitResult struct {
	UserMessage  conversation.ChatMessage      `json:"user_message"`
	AgentMessage conversation.ChatMessage      `json:"agent_message"`
	Transitioned bool                          `json:"transitioned"`
	NewFiles     []conversation.FileGeneration `json:"new_files,omitempty"`
	Progress     conversation.ProjectProgress  `json:"progress"`
}

// Service is safe for concurrent use across sessions; writes to any one
// session are serialized by a per-session lock.
type Service struct {
	cat       *catalog.Catalog
	responder *responder.Responder
	sim       *filegen.Simulator
	store     *sessionstore.Store
	hub       *hub

	tickInterval time.Duration

	mu       sync.Mutex
	sessions map[string]*conversation.Session
	locks    map[string]*sync.Mutex
	fileOwn  map[string]string // FileGeneration id -> session id
}

// Option configures the service.
type Option func(*Service)

// WithTickInterval overrides the simulator tick cadence.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) { s.tickInterval = d }
}

// WithGenerator routes response text through an external model.
func WithGenerator(g responder.Generator) Option {
	return func(s *Service) {
		s.responder = responder.New(s.cat, rand.New(rand.NewSource(time.Now().UnixNano())), responder.WithGenerator(g))
	}
}

// WithSeed makes template selection and progress increments
// deterministic, for tests.
func WithSeed(seed int64) Option {
	return func(s *Service) {
		s.responder = responder.New(s.cat, rand.New(rand.NewSource(seed)))
		s.sim = filegen.NewSimulator(rand.New(rand.NewSource(seed + 1)))
	}
}

func New(cat *catalog.Catalog, store *sessionstore.Store, opts ...Option) *Service {
	s := &Service{
		cat:          cat,
		responder:    responder.New(cat, rand.New(rand.NewSource(time.Now().UnixNano()))),
		sim:          filegen.NewSimulator(rand.New(rand.NewSource(time.Now().UnixNano() + 1))),
		store:        store,
		hub:          newHub(),
		tickInterval: defaultTickInterval,
		sessions:     make(map[string]*conversation.Session),
		locks:        make(map[string]*sync.Mutex),
		fileOwn:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drives the progress simulator until ctx is done. Start it once,
// alongside the server.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.sim.CancelAll()
			return
		case <-ticker.C:
			s.applyTick()
		}
	}
}

func (s *Service) applyTick() {
	updates := s.sim.Tick()
	for _, fg := range updates {
		s.mu.Lock()
		sessionID := s.fileOwn[fg.ID]
		if fg.Status == conversation.FileCompleted || fg.Status == conversation.FileError {
			delete(s.fileOwn, fg.ID)
		}
		s.mu.Unlock()
		if sessionID == "" {
			continue
		}
		lock := s.sessionLock(sessionID)
		lock.Lock()
		sess, err := s.loadLocked(sessionID)
		if err == nil && sess.UpdateFile(fg) {
			s.persist(sess)
			s.hub.publish(sessionID, Event{Type: EventFileProgress, SessionID: sessionID, File: &fg})
		}
		lock.Unlock()
	}
}

// CreateSession starts a new conversation at phase 1 and persists it.
func (s *Service) CreateSession(projectID, userID string) (*conversation.Session, error) {
	sess := conversation.NewSession(uuid.NewString(), projectID, userID, s.cat.Sequence())
	lock := s.sessionLock(sess.ID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.persist(sess)
	return snapshot(sess), nil
}

// GetSession returns a copy of the session, restoring it from the
// store if it is not live in memory.
func (s *Service) GetSession(sessionID string) (*conversation.Session, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	sess, err := s.loadLocked(sessionID)
	if err != nil {
		return nil, err
	}
	return snapshot(sess), nil
}

// SubmitMessage is the sole mutating entry point for a user turn: it
// validates the text, runs the engine, applies the side effects, and
// persists the session.
func (s *Service) SubmitMessage(ctx context.Context, sessionID, text string) (SubmitResult, error) {
	if strings.TrimSpace(text) == "" {
		return SubmitResult{}, responder.ErrEmptyMessage
	}
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.loadLocked(sessionID)
	if err != nil {
		return SubmitResult{}, err
	}

	userMsg := conversation.ChatMessage{
		ID:        uuid.NewString(),
		Content:   strings.TrimSpace(text),
		Origin:    conversation.OriginUser,
		CreatedAt: time.Now(),
	}

	res, err := s.responder.Respond(ctx, sess.Current, userMsg.Content, sess)
	if err != nil {
		return SubmitResult{}, err
	}

	sess.Append(userMsg)
	agentMsg := conversation.ChatMessage{
		ID:        uuid.NewString(),
		Content:   res.Text,
		Origin:    conversation.OriginAgent,
		AgentID:   sess.Current.ID,
		CreatedAt: time.Now(),
	}
	sess.Append(agentMsg)

	transitioned := false
	if res.ShouldTransition {
		transitioned = sess.Advance(res.NextAgent)
	}
	if len(res.Files) > 0 {
		sess.AddFiles(res.Files)
		s.sim.Track(res.Files...)
		s.mu.Lock()
		for _, fg := range res.Files {
			s.fileOwn[fg.ID] = sess.ID
		}
		s.mu.Unlock()
	}
	s.persist(sess)

	s.hub.publish(sess.ID, Event{Type: EventMessage, SessionID: sess.ID, Message: &userMsg})
	s.hub.publish(sess.ID, Event{Type: EventMessage, SessionID: sess.ID, Message: &agentMsg})
	for i := range res.Files {
		s.hub.publish(sess.ID, Event{Type: EventFileProgress, SessionID: sess.ID, File: &res.Files[i]})
	}
	if transitioned {
		progress := sess.Progress
		s.hub.publish(sess.ID, Event{Type: EventPhase, SessionID: sess.ID, Progress: &progress})
	}

	return SubmitResult{
		UserMessage:  userMsg,
		AgentMessage: agentMsg,
		Transitioned: transitioned,
		NewFiles:     res.Files,
		Progress:     sess.Progress,
	}, nil
}

// Readiness reports the weighted handoff evaluation for the session's
// current agent. Read-only; usable by progress indicators at any time.
func (s *Service) Readiness(sessionID string) (handoff.Report, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	sess, err := s.loadLocked(sessionID)
	if err != nil {
		return handoff.Report{}, err
	}
	return handoff.Evaluate(sess.Messages, sess.Current), nil
}

// ResetSession cancels the session's active simulations and removes it.
func (s *Service) ResetSession(sessionID string) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	for fileID, owner := range s.fileOwn {
		if owner == sessionID {
			s.sim.Cancel(fileID)
			delete(s.fileOwn, fileID)
		}
	}
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	s.store.Delete(sessionID)
}

// Subscribe attaches a listener to the session's event stream.
func (s *Service) Subscribe(sessionID string) ([]Event, <-chan Event, func()) {
	return s.hub.subscribe(sessionID)
}

func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

// loadLocked returns the live session, restoring from the store when
// needed. Caller holds the session lock.
func (s *Service) loadLocked(sessionID string) (*conversation.Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}
	state, found := s.store.Get(sessionID)
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	restored, err := s.restore(state)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sessions[sessionID] = restored
	s.mu.Unlock()
	return restored, nil
}

func (s *Service) persist(sess *conversation.Session) {
	s.store.Put(toState(sess))
}

// restore rebuilds a live session from its persisted state. Active
// (non-terminal) file generations resume simulation.
func (s *Service) restore(state sessionstore.State) (*conversation.Session, error) {
	seq := s.cat.Sequence()
	current, ok := seq.ByPhase(state.CurrentPhase)
	if !ok {
		return nil, fmt.Errorf("wizard: session %s has invalid phase %d", state.SessionID, state.CurrentPhase)
	}
	sess := conversation.NewSession(state.SessionID, state.ProjectID, state.UserID, seq)
	sess.Current = current
	sess.Active = state.IsActive
	if !state.CreatedAt.IsZero() {
		sess.CreatedAt = state.CreatedAt
	}
	sess.Progress.CurrentPhase = current.Phase
	sess.Progress.CompletedPhases = append([]int{}, state.CompletedPhases...)
	sess.Progress.Percent = float64(len(state.CompletedPhases)) / float64(seq.Len()) * 100

	for _, m := range state.Messages {
		sess.Append(conversation.ChatMessage{
			ID:        m.ID,
			Content:   m.Content,
			Origin:    conversation.Origin(m.Origin),
			AgentID:   m.AgentID,
			CreatedAt: m.CreatedAt,
		})
	}
	resume := make([]conversation.FileGeneration, 0)
	for _, f := range state.Files {
		fg := conversation.FileGeneration{
			ID:       f.ID,
			FileName: f.FileName,
			Type:     conversation.FileType(f.Type),
			Progress: f.Progress,
			Status:   conversation.FileStatus(f.Status),
			AgentID:  f.AgentID,
		}
		sess.Files = append(sess.Files, fg)
		if fg.Status == conversation.FilePending || fg.Status == conversation.FileGenerating {
			resume = append(resume, fg)
		}
	}
	if len(resume) > 0 {
		log.Printf("wizard: session %s resumes %d file generations", state.SessionID, len(resume))
		s.sim.Track(resume...)
		s.mu.Lock()
		for _, fg := range resume {
			s.fileOwn[fg.ID] = state.SessionID
		}
		s.mu.Unlock()
	}
	return sess, nil
}

func toState(sess *conversation.Session) sessionstore.State {
	state := sessionstore.State{
		SessionID:       sess.ID,
		ProjectID:       sess.ProjectID,
		UserID:          sess.UserID,
		CurrentPhase:    sess.Progress.CurrentPhase,
		CompletedPhases: append([]int{}, sess.Progress.CompletedPhases...),
		IsActive:        sess.Active,
		CreatedAt:       sess.CreatedAt,
		UpdatedAt:       time.Now(),
	}
	for _, m := range sess.Messages {
		state.Messages = append(state.Messages, sessionstore.MessageRecord{
			ID:        m.ID,
			Content:   m.Content,
			Origin:    string(m.Origin),
			AgentID:   m.AgentID,
			CreatedAt: m.CreatedAt,
		})
	}
	for _, f := range sess.Files {
		state.Files = append(state.Files, sessionstore.FileRecord{
			ID:       f.ID,
			FileName: f.FileName,
			Type:     string(f.Type),
			Progress: f.Progress,
			Status:   string(f.Status),
			AgentID:  f.AgentID,
		})
	}
	return state
}

// snapshot copies a session so callers cannot mutate engine state.
func snapshot(sess *conversation.Session) *conversation.Session {
	out := *sess
	out.Messages = append([]conversation.ChatMessage{}, sess.Messages...)
	out.Files = append([]conversation.FileGeneration{}, sess.Files...)
	out.Progress.CompletedPhases = append([]int{}, sess.Progress.CompletedPhases...)
	return &out
}
