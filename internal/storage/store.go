// Package storage is the only component that reads or writes session files
// and the index file directly. It owns the on-disk envelope format, the
// atomic write-with-backup protocol, and index consistency: a session's file
// write always completes before its index entry is updated, so an observer
// sees either the old consistent pair or the new one, never a mismatch.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/session-vault/internal/fsutil"
	"github.com/valter-silva-au/session-vault/internal/observability"
	"github.com/valter-silva-au/session-vault/pkg/models"
)

// IndexVersion is the current index schema tag.
const IndexVersion = "1.0"

const sessionFileExt = ".json"

// Store persists session envelopes and the master index under
// basePath/sessions/.
type Store struct {
	basePath string
	cfg      models.StorageConfig
	comp     *fsutil.Compressor
	log      observability.EventLog

	mu    sync.RWMutex
	index *models.SessionIndex // cached; nil until first load
}

// NewStore creates a session store rooted at basePath. log may be nil to
// disable event emission.
func NewStore(basePath string, cfg models.StorageConfig, log observability.EventLog) *Store {
	level := cfg.CompressionLevel
	if level <= 0 {
		level = 3
	}
	return &Store{
		basePath: basePath,
		cfg:      cfg,
		comp:     fsutil.NewCompressor(level),
		log:      log,
	}
}

func (s *Store) sessionsDir() string {
	return filepath.Join(s.basePath, "sessions")
}

func (s *Store) backupsDir() string {
	return filepath.Join(s.sessionsDir(), "backups")
}

func (s *Store) indexPath() string {
	return filepath.Join(s.sessionsDir(), "index.yaml")
}

// SessionPath returns the deterministic file path for a session id.
func (s *Store) SessionPath(id string) string {
	return filepath.Join(s.sessionsDir(), id+sessionFileExt)
}

// validID rejects ids that are empty or would escape the sessions directory.
func validID(id string) error {
	if id == "" {
		return fmt.Errorf("empty session id: %w", ErrValidation)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("session id %q contains path separators: %w", id, ErrValidation)
	}
	return nil
}

// WriteSession serializes session, wraps it in an envelope, and installs it
// atomically with a backup of the prior state. The index entry is updated
// only after the file write succeeds, so a crash between the two can leave
// an orphaned file but never an index entry pointing at missing data.
func (s *Store) WriteSession(id string, session *models.Session) error {
	if err := validID(id); err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("nil session: %w", ErrValidation)
	}
	if session.ID != id {
		return fmt.Errorf("session id %q does not match %q: %w", session.ID, id, ErrValidation)
	}

	if err := os.MkdirAll(s.sessionsDir(), 0o755); err != nil {
		return fmt.Errorf("writing session %s: creating directory: %w", id, err)
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("writing session %s: serializing: %w", id, err)
	}
	env, err := s.seal(payload)
	if err != nil {
		return fmt.Errorf("writing session %s: %w", id, err)
	}
	// Compact encoding keeps the embedded payload byte-identical to what the
	// checksum was computed over.
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("writing session %s: encoding envelope: %w", id, err)
	}

	err = fsutil.WriteFileAtomic(s.SessionPath(id), raw, fsutil.AtomicWriteOptions{
		Mode:         0o600,
		CreateBackup: true,
		OnBackupError: func(bErr error) {
			observability.Emit(s.log, observability.LevelWarn, observability.EventBackupFailed,
				"pre-write backup failed", map[string]any{"session_id": id, "error": bErr.Error()})
		},
	})
	if err != nil {
		return fmt.Errorf("writing session %s: %w", id, err)
	}

	// File write succeeded; only now touch the catalog.
	if err := s.updateIndexEntry(session.Metadata()); err != nil {
		return fmt.Errorf("writing session %s: updating index: %w", id, err)
	}

	observability.Emit(s.log, observability.LevelInfo, observability.EventSessionSaved,
		"session saved", map[string]any{"session_id": id, "bytes": len(raw)})
	return nil
}

// ReadSession loads, unwraps, and deserializes the session for id.
// A checksum mismatch or undecodable envelope fails with ErrCorruption
// rather than returning possibly-wrong data.
func (s *Store) ReadSession(id string) (*models.Session, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	raw, err := fsutil.SafeReadFile(s.SessionPath(id), s.cfg.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}
	payload, err := s.payload(env)
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}

	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("reading session %s: deserializing: %v: %w", id, err, ErrCorruption)
	}
	return &session, nil
}

// CreateBackup snapshots the current envelope for id to a caller-visible
// path under sessions/backups/, independent of the backup-on-write behavior.
// Used as an explicit checkpoint before risky operations.
func (s *Store) CreateBackup(id string) (string, error) {
	if err := validID(id); err != nil {
		return "", err
	}

	raw, err := fsutil.SafeReadFile(s.SessionPath(id), s.cfg.MaxFileSize)
	if err != nil {
		return "", fmt.Errorf("backing up session %s: %w", id, err)
	}
	if err := os.MkdirAll(s.backupsDir(), 0o755); err != nil {
		return "", fmt.Errorf("backing up session %s: creating directory: %w", id, err)
	}

	path := filepath.Join(s.backupsDir(), fmt.Sprintf("%s-%d%s", id, time.Now().Unix(), sessionFileExt))
	if err := fsutil.WriteFileAtomic(path, raw, fsutil.AtomicWriteOptions{Mode: 0o600}); err != nil {
		return "", fmt.Errorf("backing up session %s: %w", id, err)
	}

	observability.Emit(s.log, observability.LevelInfo, observability.EventBackupCreated,
		"backup created", map[string]any{"session_id": id, "path": path})
	return path, nil
}

// RestoreFromBackup reads a backup file, reinstalls it as the canonical
// envelope for the embedded session id via the normal write path (including
// the index update), and returns that id.
func (s *Store) RestoreFromBackup(path string) (string, error) {
	raw, err := fsutil.SafeReadFile(path, s.cfg.MaxFileSize)
	if err != nil {
		return "", fmt.Errorf("restoring backup %s: %w", path, err)
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		return "", fmt.Errorf("restoring backup %s: %w", path, err)
	}
	payload, err := s.payload(env)
	if err != nil {
		return "", fmt.Errorf("restoring backup %s: %w", path, err)
	}

	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return "", fmt.Errorf("restoring backup %s: deserializing: %v: %w", path, err, ErrCorruption)
	}
	if err := s.WriteSession(session.ID, &session); err != nil {
		return "", fmt.Errorf("restoring backup %s: %w", path, err)
	}

	observability.Emit(s.log, observability.LevelInfo, observability.EventSessionRestored,
		"session restored from backup", map[string]any{"session_id": session.ID, "path": path})
	return session.ID, nil
}

// DeleteSession removes the primary file, any write backup, and the index
// entry, in that order. Each step is idempotent, so a partial failure can be
// retried safely.
func (s *Store) DeleteSession(id string) error {
	if err := validID(id); err != nil {
		return err
	}

	path := s.SessionPath(id)
	if err := fsutil.SafeDeleteFile(path); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if err := fsutil.SafeDeleteFile(path + fsutil.BackupSuffix); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if err := s.removeIndexEntry(id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}

	observability.Emit(s.log, observability.LevelInfo, observability.EventSessionDeleted,
		"session deleted", map[string]any{"session_id": id})
	return nil
}

// Index returns a snapshot of the session index. A missing index file is an
// empty index, not an error. The result is a copy; mutating it does not
// affect the store.
func (s *Store) Index() (*models.SessionIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadIndexLocked(); err != nil {
		return nil, err
	}
	return copyIndex(s.index), nil
}

// InvalidateIndexCache drops the in-memory index so the next access re-reads
// the file. Used after out-of-band filesystem changes.
func (s *Store) InvalidateIndexCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = nil
}

// ListSessionFileIDs returns the ids of all session files on disk, in no
// particular order. Backups, the index, and temp files are excluded.
func (s *Store) ListSessionFileIDs() ([]string, error) {
	entries, err := os.ReadDir(s.sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing session files: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, sessionFileExt) || strings.HasPrefix(name, ".") {
			continue
		}
		if name == "index.yaml" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, sessionFileExt))
	}
	return ids, nil
}

// --- index maintenance ---

func (s *Store) updateIndexEntry(md models.SessionMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadIndexLocked(); err != nil {
		return err
	}
	s.index.Sessions[md.ID] = md
	return s.writeIndexLocked()
}

func (s *Store) removeIndexEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadIndexLocked(); err != nil {
		return err
	}
	if _, ok := s.index.Sessions[id]; !ok {
		return nil
	}
	delete(s.index.Sessions, id)
	return s.writeIndexLocked()
}

// RewriteIndex replaces the whole catalog in one write. The validator uses
// this to apply a reconciled entry set.
func (s *Store) RewriteIndex(sessions map[string]models.SessionMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadIndexLocked(); err != nil {
		return err
	}
	s.index.Sessions = make(map[string]models.SessionMetadata, len(sessions))
	for id, md := range sessions {
		s.index.Sessions[id] = md
	}
	return s.writeIndexLocked()
}

func (s *Store) loadIndexLocked() error {
	if s.index != nil {
		return nil
	}

	idx := &models.SessionIndex{
		Version:  IndexVersion,
		Sessions: make(map[string]models.SessionMetadata),
	}
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("loading session index: %w", err)
		}
	} else if err := yaml.Unmarshal(data, idx); err != nil {
		return fmt.Errorf("parsing session index: %w", err)
	}
	if idx.Version == "" {
		idx.Version = IndexVersion
	}
	if idx.Sessions == nil {
		idx.Sessions = make(map[string]models.SessionMetadata)
	}
	s.index = idx
	return nil
}

func (s *Store) writeIndexLocked() error {
	s.index.LastUpdated = time.Now().UTC()

	if err := os.MkdirAll(s.sessionsDir(), 0o755); err != nil {
		return fmt.Errorf("saving session index: creating directory: %w", err)
	}
	data, err := yaml.Marshal(s.index)
	if err != nil {
		return fmt.Errorf("saving session index: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.indexPath(), data, fsutil.AtomicWriteOptions{Mode: 0o600}); err != nil {
		return fmt.Errorf("saving session index: %w", err)
	}
	return nil
}

func copyIndex(idx *models.SessionIndex) *models.SessionIndex {
	out := &models.SessionIndex{
		Version:     idx.Version,
		LastUpdated: idx.LastUpdated,
		Sessions:    make(map[string]models.SessionMetadata, len(idx.Sessions)),
	}
	for id, md := range idx.Sessions {
		out.Sessions[id] = md
	}
	return out
}
