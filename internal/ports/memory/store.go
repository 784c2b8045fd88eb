// Package memory provides the in-process SessionStore the app and RPC tests run against.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"beergame/internal/domain"
	"beergame/internal/ports"
)

// MinPrefixLength is the shortest id prefix GetByJoinCode will resolve.
const MinPrefixLength = 4

type record struct {
	session *domain.Session
	version int64
}

// Store keeps cloned sessions in a map. Every save bumps a store-wide version counter.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]record
	joinCodes map[string]string // upper-case code -> session id
	seq       int64
	retention time.Duration
	now       func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithRetention expires sessions created more than d ago. Zero keeps sessions forever.
func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions:  make(map[string]record),
		joinCodes: make(map[string]string),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get loads a session by id.
func (s *Store) Get(_ context.Context, sessionID string) (ports.StoredSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(sessionID)
}

// GetByJoinCode resolves a join code, falling back to a unique id prefix.
func (s *Store) GetByJoinCode(_ context.Context, joinCode string) (ports.StoredSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := strings.ToUpper(strings.TrimSpace(joinCode))
	if id, ok := s.joinCodes[code]; ok {
		return s.loadLocked(id)
	}
	if len(code) < MinPrefixLength {
		return ports.StoredSession{}, ports.ErrSessionNotFound
	}

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		if strings.HasPrefix(strings.ToUpper(id), code) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		if found, err := s.loadLocked(id); err == nil {
			return found, nil
		}
	}
	return ports.StoredSession{}, ports.ErrSessionNotFound
}

// Create stores a new session and claims its join code.
func (s *Store) Create(_ context.Context, session *domain.Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.loadLocked(session.ID); err == nil {
		return "", ports.ErrVersionConflict
	}
	code := strings.ToUpper(session.JoinCode)
	if owner, ok := s.joinCodes[code]; ok {
		if _, err := s.loadLocked(owner); err == nil {
			return "", ports.ErrJoinCodeTaken
		}
	}

	s.seq++
	s.sessions[session.ID] = record{session: session.Clone(), version: s.seq}
	s.joinCodes[code] = session.ID
	return strconv.FormatInt(s.seq, 10), nil
}

// Save replaces a session if it is still at version.
func (s *Store) Save(_ context.Context, session *domain.Session, version string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked(session.ID)
	if err != nil {
		return "", err
	}
	if current.Version != version {
		return "", ports.ErrVersionConflict
	}

	s.seq++
	s.sessions[session.ID] = record{session: session.Clone(), version: s.seq}
	return strconv.FormatInt(s.seq, 10), nil
}

// loadLocked returns a clone of the session, dropping it first if it has expired.
func (s *Store) loadLocked(sessionID string) (ports.StoredSession, error) {
	rec, ok := s.sessions[sessionID]
	if !ok {
		return ports.StoredSession{}, ports.ErrSessionNotFound
	}
	if s.expired(rec.session) {
		delete(s.sessions, sessionID)
		if s.joinCodes[rec.session.JoinCode] == sessionID {
			delete(s.joinCodes, rec.session.JoinCode)
		}
		return ports.StoredSession{}, ports.ErrSessionNotFound
	}
	return ports.StoredSession{
		Session: rec.session.Clone(),
		Version: strconv.FormatInt(rec.version, 10),
	}, nil
}

func (s *Store) expired(session *domain.Session) bool {
	return s.retention > 0 && s.now().Sub(session.CreatedAt) > s.retention
}

var _ ports.SessionStore = (*Store)(nil)
