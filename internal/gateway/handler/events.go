package handler

import (
	"log"
	"net/http"
	"time"

	"consultify/internal/gateway/service/wizard"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	eventsWSWriteWait = 10 * time.Second
	eventsWSPongWait  = 60 * time.Second
	eventsWSPingEvery = (eventsWSPongWait * 9) / 10
)

var eventsWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// handleEvents streams session events over a websocket: replay snapshot
// first, then live events, with ping/pong keepalive.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.wizard.GetSession(sessionID); err != nil {
		respondError(w, err)
		return
	}

	conn, err := eventsWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("handler: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	snapshot, live, cancel := h.wizard.Subscribe(sessionID)
	defer cancel()

	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(eventsWSPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsWSPongWait))
	})

	// Reader goroutine only services control frames; the stream is
	// one-way. Closing done ends the write loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	writeEvent := func(ev wizard.Event) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait))
		if err := conn.WriteJSON(ev); err != nil {
			return false
		}
		return true
	}

	for _, ev := range snapshot {
		if !writeEvent(ev) {
			return
		}
	}

	pings := time.NewTicker(eventsWSPingEvery)
	defer pings.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-live:
			if !ok {
				return
			}
			if !writeEvent(ev) {
				return
			}
		case <-pings.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
