// Package sessionstore persists wizard session state. The default
// backend is a JSON file; setting SESSION_STORE_PG_DSN switches to
// Postgres over the pgx stdlib driver, with an LRU snapshot cache in
// front of the database.
package sessionstore

import (
	"database/sql"
	"os"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	byID     map[string]State

	schemaOnce sync.Once
	schemaErr  error

	snapshotCache *lru.Cache[string, State]
}

// New returns a file-backed store rooted at path.
func New(path string) *Store {
	return &Store{
		path: path,
		byID: make(map[string]State),
	}
}

// NewPostgres returns a database-backed store for the given DSN.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, State](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		db:            db,
		snapshotCache: cache,
	}, nil
}

// NewFromEnv picks the Postgres backend when SESSION_STORE_PG_DSN is
// set and reachable, otherwise falls back to the JSON file at path.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("SESSION_STORE_PG_DSN"))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(path)
	}
	return s
}

func (s *Store) EnsureLoaded() {
	if s == nil {
		return
	}
	if s.db != nil {
		_ = s.ensureSchema()
		return
	}
	s.ensureLoadedFile()
}

func (s *Store) Get(sessionID string) (State, bool) {
	if s == nil {
		return State{}, false
	}
	if s.db != nil {
		if s.snapshotCache != nil {
			if cached, ok := s.snapshotCache.Get(strings.TrimSpace(sessionID)); ok {
				return cached, true
			}
		}
		state, ok := s.getDB(sessionID)
		if ok && s.snapshotCache != nil {
			s.snapshotCache.Add(state.SessionID, state)
		}
		return state, ok
	}
	return s.getFile(sessionID)
}

func (s *Store) Put(state State) {
	if s == nil {
		return
	}
	if s.db != nil {
		s.putDB(state)
		if s.snapshotCache != nil {
			s.snapshotCache.Remove(strings.TrimSpace(state.SessionID))
		}
		return
	}
	s.putFile(state)
}

func (s *Store) Update(sessionID string, update func(*State)) (State, bool) {
	if s == nil {
		return State{}, false
	}
	if s.db != nil {
		state, ok := s.updateDB(sessionID, update)
		if ok && s.snapshotCache != nil {
			s.snapshotCache.Remove(state.SessionID)
		}
		return state, ok
	}
	return s.updateFile(sessionID, update)
}

func (s *Store) ListByProject(projectID string) []State {
	if s == nil {
		return nil
	}
	if s.db != nil {
		return s.listByProjectDB(projectID)
	}
	return s.listByProjectFile(projectID)
}

func (s *Store) Delete(sessionID string) {
	if s == nil {
		return
	}
	if s.db != nil {
		s.deleteDB(sessionID)
		if s.snapshotCache != nil {
			s.snapshotCache.Remove(strings.TrimSpace(sessionID))
		}
		return
	}
	s.deleteFile(sessionID)
}

// Save flushes the file backend; the database backend writes through.
func (s *Store) Save() {
	if s == nil || s.db != nil {
		return
	}
	s.saveFile()
}
