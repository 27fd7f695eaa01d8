// Package session exposes the vault's public entry points: a minimal
// session-CRUD Manager backed by the storage layer, and a SafeManager that
// wraps any Manager with validation, quarantine, and structured recovery.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/valter-silva-au/session-vault/internal/storage"
	"github.com/valter-silva-au/session-vault/pkg/models"
)

// SessionVersion is the schema tag stamped on newly created sessions.
const SessionVersion = "1.0"

// Manager is the base session-CRUD capability. The safety layer depends only
// on these signatures, not on any particular implementation.
type Manager interface {
	ListSessions() ([]models.SessionMetadata, error)
	LoadSession(id string) (*models.Session, error)
	SaveSession(session *models.Session) error
	DeleteSession(id string) error
	SetCurrentSession(session *models.Session)
	CurrentSession() *models.Session
}

// storeManager implements Manager on top of the storage layer.
type storeManager struct {
	store *storage.Store

	mu      sync.RWMutex
	current *models.Session
}

// NewManager creates a Manager backed by the given store.
func NewManager(store *storage.Store) Manager {
	return &storeManager{store: store}
}

// CreateSession builds a fresh session with a unique id and persists it.
func CreateSession(m Manager, model, provider, workspaceRoot string) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		ID:            uuid.NewString(),
		Version:       SessionVersion,
		Created:       now,
		LastModified:  now,
		Model:         model,
		Provider:      provider,
		WorkspaceRoot: workspaceRoot,
	}
	if err := m.SaveSession(session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return session, nil
}

// ListSessions returns catalog metadata for all sessions, newest first.
func (m *storeManager) ListSessions() ([]models.SessionMetadata, error) {
	idx, err := m.store.Index()
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	sessions := make([]models.SessionMetadata, 0, len(idx.Sessions))
	for _, md := range idx.Sessions {
		sessions = append(sessions, md)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].LastModified.Equal(sessions[j].LastModified) {
			return sessions[i].LastModified.After(sessions[j].LastModified)
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

// LoadSession reads the full session record for id.
func (m *storeManager) LoadSession(id string) (*models.Session, error) {
	return m.store.ReadSession(id)
}

// SaveSession persists the session, stamping LastModified. Created is
// initialized on first save so created <= lastModified always holds for
// records written through this path.
func (m *storeManager) SaveSession(session *models.Session) error {
	if session == nil {
		return fmt.Errorf("saving session: %w", storage.ErrValidation)
	}

	now := time.Now().UTC()
	if session.Created.IsZero() {
		session.Created = now
	}
	session.LastModified = now
	if session.Version == "" {
		session.Version = SessionVersion
	}
	return m.store.WriteSession(session.ID, session)
}

// DeleteSession removes the session and clears it as current if loaded.
func (m *storeManager) DeleteSession(id string) error {
	if err := m.store.DeleteSession(id); err != nil {
		return err
	}

	m.mu.Lock()
	if m.current != nil && m.current.ID == id {
		m.current = nil
	}
	m.mu.Unlock()
	return nil
}

// SetCurrentSession marks session as the one in active use. nil clears it.
func (m *storeManager) SetCurrentSession(session *models.Session) {
	m.mu.Lock()
	m.current = session
	m.mu.Unlock()
}

// CurrentSession returns the session in active use, or nil.
func (m *storeManager) CurrentSession() *models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}
