package ports

import (
	"context"
	"errors"

	"beergame/internal/domain"
)

var (
	// ErrSessionNotFound is returned when no session matches the id or join code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrVersionConflict is returned when a conditional save loses to a concurrent writer.
	ErrVersionConflict = errors.New("session version conflict")
	// ErrJoinCodeTaken is returned when a new session's join code is already in use.
	ErrJoinCodeTaken = errors.New("join code already in use")
)

// StoredSession is a session together with the opaque version it was read at.
type StoredSession struct {
	Session *domain.Session
	Version string
}

// SessionStore persists sessions and indexes them by join code.
type SessionStore interface {
	// Get loads a session by id.
	Get(ctx context.Context, sessionID string) (StoredSession, error)

	// GetByJoinCode resolves a case-insensitive join code to its session.
	GetByJoinCode(ctx context.Context, joinCode string) (StoredSession, error)

	// Create stores a new session and claims its join code in one step.
	// Returns ErrJoinCodeTaken when the code belongs to another live session.
	Create(ctx context.Context, session *domain.Session) (string, error)

	// Save replaces the session if it is still at version and returns the new version.
	// Returns ErrVersionConflict when another writer got there first.
	Save(ctx context.Context, session *domain.Session, version string) (string, error)
}
