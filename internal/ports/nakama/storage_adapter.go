package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"beergame/internal/domain"
	"beergame/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// minPrefixLength is the shortest id prefix GetByJoinCode will resolve.
const minPrefixLength = 4

// StorageEngine is the part of runtime.NakamaModule the session storage needs.
type StorageEngine interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageList(ctx context.Context, callerID, userID, collection string, limit int, cursor string) ([]*api.StorageObject, string, error)
	StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error
}

type joinCodeRecord struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStorage implements ports.SessionStore on the Nakama storage engine. Object versions
// returned by Nakama are the store versions.
type SessionStorage struct {
	nk        StorageEngine
	retention time.Duration
	now       func() time.Time
}

// NewSessionStorage creates the storage adapter. A zero retention keeps sessions forever.
func NewSessionStorage(nk StorageEngine, retention time.Duration) *SessionStorage {
	return &SessionStorage{nk: nk, retention: retention, now: time.Now}
}

// Get loads a session by id.
func (a *SessionStorage) Get(ctx context.Context, sessionID string) (ports.StoredSession, error) {
	if sessionID == "" {
		return ports.StoredSession{}, ports.ErrSessionNotFound
	}
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: SessionCollection, Key: sessionID},
	})
	if err != nil {
		return ports.StoredSession{}, fmt.Errorf("failed to read session: %w", err)
	}
	if len(objects) == 0 {
		return ports.StoredSession{}, ports.ErrSessionNotFound
	}
	return a.decode(ctx, objects[0])
}

// GetByJoinCode resolves a join code, falling back to an id prefix scan.
func (a *SessionStorage) GetByJoinCode(ctx context.Context, joinCode string) (ports.StoredSession, error) {
	code := strings.ToUpper(strings.TrimSpace(joinCode))
	if code == "" {
		return ports.StoredSession{}, ports.ErrSessionNotFound
	}

	rec, _, err := a.readJoinCode(ctx, code)
	if err != nil && !errors.Is(err, ports.ErrSessionNotFound) {
		return ports.StoredSession{}, err
	}
	if err == nil {
		found, err := a.Get(ctx, rec.SessionID)
		if !errors.Is(err, ports.ErrSessionNotFound) {
			return found, err
		}
	}

	if len(code) < minPrefixLength {
		return ports.StoredSession{}, ports.ErrSessionNotFound
	}
	return a.scanPrefix(ctx, code)
}

func (a *SessionStorage) scanPrefix(ctx context.Context, prefix string) (ports.StoredSession, error) {
	cursor := ""
	for {
		objects, next, err := a.nk.StorageList(ctx, "", "", SessionCollection, listPageSize, cursor)
		if err != nil {
			return ports.StoredSession{}, fmt.Errorf("failed to list sessions: %w", err)
		}
		for _, obj := range objects {
			if !strings.HasPrefix(strings.ToUpper(obj.GetKey()), prefix) {
				continue
			}
			if found, err := a.decode(ctx, obj); err == nil {
				return found, nil
			}
		}
		if next == "" || len(objects) == 0 {
			return ports.StoredSession{}, ports.ErrSessionNotFound
		}
		cursor = next
	}
}

// Create writes the session and its join code in one batch. Both writes are create-only, so
// the batch fails as a whole if either object exists.
func (a *SessionStorage) Create(ctx context.Context, session *domain.Session) (string, error) {
	value, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	code, err := json.Marshal(joinCodeRecord{SessionID: session.ID, CreatedAt: session.CreatedAt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal join code: %w", err)
	}

	writes := []*runtime.StorageWrite{
		{
			Collection:      SessionCollection,
			Key:             session.ID,
			Value:           string(value),
			Version:         "*",
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
		{
			Collection:      JoinCodeCollection,
			Key:             strings.ToUpper(session.JoinCode),
			Value:           string(code),
			Version:         "*",
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	}

	for attempt := 0; attempt < 2; attempt++ {
		acks, err := a.nk.StorageWrite(ctx, writes)
		if err == nil {
			return ackVersion(acks, SessionCollection, session.ID), nil
		}
		if !errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return "", fmt.Errorf("failed to create session: %w", err)
		}
		reclaimed, err := a.classifyCreateConflict(ctx, session)
		if err != nil {
			return "", err
		}
		if !reclaimed {
			break
		}
	}
	return "", ports.ErrJoinCodeTaken
}

// classifyCreateConflict works out which create-only write was rejected. A join code left
// behind by an expired session is deleted so the caller can retry.
func (a *SessionStorage) classifyCreateConflict(ctx context.Context, session *domain.Session) (bool, error) {
	if _, err := a.Get(ctx, session.ID); err == nil {
		return false, ports.ErrVersionConflict
	}

	code := strings.ToUpper(session.JoinCode)
	rec, version, err := a.readJoinCode(ctx, code)
	if errors.Is(err, ports.ErrSessionNotFound) {
		// The code vanished in between; try again.
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := a.Get(ctx, rec.SessionID); !errors.Is(err, ports.ErrSessionNotFound) {
		return false, nil
	}
	err = a.nk.StorageDelete(ctx, []*runtime.StorageDelete{
		{Collection: JoinCodeCollection, Key: code, Version: version},
	})
	if err != nil && !errors.Is(err, runtime.ErrStorageRejectedVersion) {
		return false, fmt.Errorf("failed to reclaim join code: %w", err)
	}
	return true, nil
}

// Save replaces the session if it is still at version.
func (a *SessionStorage) Save(ctx context.Context, session *domain.Session, version string) (string, error) {
	if version == "" || version == "*" {
		return "", ports.ErrVersionConflict
	}
	value, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	acks, err := a.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      SessionCollection,
			Key:             session.ID,
			Value:           string(value),
			Version:         version,
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return "", ports.ErrVersionConflict
		}
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return ackVersion(acks, SessionCollection, session.ID), nil
}

func (a *SessionStorage) readJoinCode(ctx context.Context, code string) (joinCodeRecord, string, error) {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: JoinCodeCollection, Key: code},
	})
	if err != nil {
		return joinCodeRecord{}, "", fmt.Errorf("failed to read join code: %w", err)
	}
	if len(objects) == 0 {
		return joinCodeRecord{}, "", ports.ErrSessionNotFound
	}
	var rec joinCodeRecord
	if err := json.Unmarshal([]byte(objects[0].GetValue()), &rec); err != nil {
		return joinCodeRecord{}, "", fmt.Errorf("failed to unmarshal join code: %w", err)
	}
	return rec, objects[0].GetVersion(), nil
}

// decode unmarshals a session object, deleting it when it has outlived the retention window.
func (a *SessionStorage) decode(ctx context.Context, obj *api.StorageObject) (ports.StoredSession, error) {
	var session domain.Session
	if err := json.Unmarshal([]byte(obj.GetValue()), &session); err != nil {
		return ports.StoredSession{}, fmt.Errorf("failed to unmarshal session %s: %w", obj.GetKey(), err)
	}
	if a.retention > 0 && a.now().Sub(session.CreatedAt) > a.retention {
		a.expire(ctx, obj, &session)
		return ports.StoredSession{}, ports.ErrSessionNotFound
	}
	return ports.StoredSession{Session: &session, Version: obj.GetVersion()}, nil
}

// expire deletes an expired session and its join code unless the code now belongs to a
// newer session. Failures are ignored; the next reader tries again.
func (a *SessionStorage) expire(ctx context.Context, obj *api.StorageObject, session *domain.Session) {
	deletes := []*runtime.StorageDelete{
		{Collection: SessionCollection, Key: obj.GetKey(), Version: obj.GetVersion()},
	}
	code := strings.ToUpper(session.JoinCode)
	if rec, version, err := a.readJoinCode(ctx, code); err == nil && rec.SessionID == session.ID {
		deletes = append(deletes, &runtime.StorageDelete{Collection: JoinCodeCollection, Key: code, Version: version})
	}
	_ = a.nk.StorageDelete(ctx, deletes)
}

func ackVersion(acks []*api.StorageObjectAck, collection, key string) string {
	for _, ack := range acks {
		if ack.GetCollection() == collection && ack.GetKey() == key {
			return ack.GetVersion()
		}
	}
	return ""
}

var _ ports.SessionStore = (*SessionStorage)(nil)
