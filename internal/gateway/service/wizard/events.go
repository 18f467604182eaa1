package wizard

import (
	"sync"

	"consultify/internal/engine/conversation"
)

type EventType string

const (
	EventMessage      EventType = "message"
	EventFileProgress EventType = "file_progress"
	EventPhase        EventType = "phase"
)

// Event is one entry in a session's outbound stream. Exactly one of
// Message, File, or Progress is set, matching Type.
type Event struct {
	Type      EventType                     `json:"type"`
	SessionID string                        `json:"session_id"`
	Seq       int64                         `json:"seq"`
	Message   *conversation.ChatMessage     `json:"message,omitempty"`
	File      *conversation.FileGeneration  `json:"file,omitempty"`
	Progress  *conversation.ProjectProgress `json:"progress,omitempty"`
}

// hub fans session events out to websocket subscribers. Each session
// keeps a bounded replay log so late subscribers get a snapshot first.
type hub struct {
	mu      sync.Mutex
	logs    map[string][]Event
	subs    map[string]map[int]chan Event
	nextSub int
	nextSeq map[string]int64
}

const maxReplayEvents = 256

func newHub() *hub {
	return &hub{
		logs:    make(map[string][]Event),
		subs:    make(map[string]map[int]chan Event),
		nextSeq: make(map[string]int64),
	}
}

func (h *hub) publish(sessionID string, ev Event) {
	h.mu.Lock()
	h.nextSeq[sessionID]++
	ev.Seq = h.nextSeq[sessionID]
	logged := append(h.logs[sessionID], ev)
	if len(logged) > maxReplayEvents {
		logged = logged[len(logged)-maxReplayEvents:]
	}
	h.logs[sessionID] = logged

	// Deliver under the lock so a concurrent cancel cannot close a
	// channel mid-send. Sends are non-blocking.
	for _, ch := range h.subs[sessionID] {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; it still has the replay log on reconnect.
		}
	}
	h.mu.Unlock()
}

func (h *hub) subscribe(sessionID string) ([]Event, <-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := append([]Event{}, h.logs[sessionID]...)
	ch := make(chan Event, 64)
	id := h.nextSub
	h.nextSub++
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[int]chan Event)
	}
	h.subs[sessionID][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if ch, ok := h.subs[sessionID][id]; ok {
			delete(h.subs[sessionID], id)
			close(ch)
		}
	}
	return snapshot, ch, cancel
}
