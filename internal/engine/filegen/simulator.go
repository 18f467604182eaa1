package filegen

import (
	"log"
	"math/rand"
	"sync"

	"consultify/internal/engine/conversation"
)

const (
	minIncrement = 10
	maxIncrement = 30

	// Safety valve: a record still active after this many ticks is
	// force-completed so a misconfigured trigger can never leak an
	// immortal simulation.
	defaultMaxTicks = 12
)

// Simulator advances tracked FileGeneration records toward completion.
// It holds no timers of its own; an external scheduler calls Tick, so
// tests can drive it deterministically and shutdown cannot orphan
// timers. Per-record cancellation is keyed by FileGeneration id.
type Simulator struct {
	mu       sync.Mutex
	rnd      *rand.Rand
	active   map[string]*track
	maxTicks int
}

type track struct {
	fg    conversation.FileGeneration
	ticks int
}

// NewSimulator builds a simulator around the given random source. The
// source is owned by the simulator afterwards; sharing it with other
// writers would race.
func NewSimulator(rnd *rand.Rand) *Simulator {
	return &Simulator{
		rnd:      rnd,
		active:   make(map[string]*track),
		maxTicks: defaultMaxTicks,
	}
}

// Track registers pending records for simulation. Records already
// terminal are ignored.
func (s *Simulator) Track(files ...conversation.FileGeneration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fg := range files {
		if fg.ID == "" || fg.Status == conversation.FileCompleted || fg.Status == conversation.FileError {
			continue
		}
		s.active[fg.ID] = &track{fg: fg}
	}
}

// Tick advances every active record by a randomized 10-30 point
// increment and returns the updated snapshots. Records that reach 100
// flip to completed and leave the active set. Progress never moves
// backwards.
func (s *Simulator) Tick() []conversation.FileGeneration {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]conversation.FileGeneration, 0, len(s.active))
	for id, tr := range s.active {
		tr.ticks++
		if tr.fg.Status == conversation.FilePending {
			tr.fg.Status = conversation.FileGenerating
		}
		tr.fg.Progress += minIncrement + s.rnd.Intn(maxIncrement-minIncrement+1)
		if tr.ticks > s.maxTicks && tr.fg.Progress < 100 {
			log.Printf("filegen: %s (%s) exceeded %d ticks, force-completing", tr.fg.FileName, id, s.maxTicks)
			tr.fg.Progress = 100
		}
		if tr.fg.Progress >= 100 {
			tr.fg.Progress = 100
			tr.fg.Status = conversation.FileCompleted
			delete(s.active, id)
		}
		updated = append(updated, tr.fg)
	}
	return updated
}

// Cancel stops simulating the record with the given id. Its last
// observed state stands; no further updates are produced for it.
func (s *Simulator) Cancel(id string) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

// CancelAll drops every active record, e.g. on session reset.
func (s *Simulator) CancelAll() {
	s.mu.Lock()
	s.active = make(map[string]*track)
	s.mu.Unlock()
}

// ActiveCount reports how many records are still being simulated.
func (s *Simulator) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
