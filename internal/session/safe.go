package session

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/valter-silva-au/session-vault/internal/fsutil"
	"github.com/valter-silva-au/session-vault/internal/observability"
	"github.com/valter-silva-au/session-vault/internal/recovery"
	"github.com/valter-silva-au/session-vault/internal/storage"
	"github.com/valter-silva-au/session-vault/pkg/models"
)

// InvalidSession pairs a catalog entry with the reasons its file failed
// validation.
type InvalidSession struct {
	Metadata models.SessionMetadata `json:"metadata"`
	Errors   []string               `json:"errors"`
}

// DetectionResult partitions the catalog into restorable and broken
// sessions. It is always returned, never an error; total failure to read the
// catalog yields an empty result plus a warning.
type DetectionResult struct {
	ValidSessions    []models.SessionMetadata `json:"valid_sessions"`
	InvalidSessions  []InvalidSession         `json:"invalid_sessions,omitempty"`
	CleanupPerformed bool                     `json:"cleanup_performed"`
	Warnings         []string                 `json:"warnings,omitempty"`
}

// ContextFileStatus reports whether one referenced context file still exists.
type ContextFileStatus struct {
	Path    string `json:"path"`
	Present bool   `json:"present"`
}

// RestoreResult is the structured outcome of a safe restoration. On failure
// it carries the reason and at least one actionable recovery option.
type RestoreResult struct {
	Success         bool                `json:"success"`
	Session         *models.Session     `json:"session,omitempty"`
	Error           string              `json:"error,omitempty"`
	RecoveryOptions []recovery.Option   `json:"recovery_options,omitempty"`
	ContextFiles    []ContextFileStatus `json:"context_files,omitempty"`
}

// SafeManager is the entry point application code should use. It composes a
// base Manager with the validator and the failure tracker; no failure
// escapes it as a raw error.
type SafeManager struct {
	base      Manager
	validator *storage.Validator
	tracker   *recovery.Tracker
	log       observability.EventLog
}

// NewSafeManager wraps base with validation and recovery.
func NewSafeManager(base Manager, validator *storage.Validator, tracker *recovery.Tracker, log observability.EventLog) *SafeManager {
	return &SafeManager{
		base:      base,
		validator: validator,
		tracker:   tracker,
		log:       log,
	}
}

// Base returns the wrapped Manager for direct CRUD access.
func (sm *SafeManager) Base() Manager {
	return sm.base
}

// DetectAvailableSessions lists the catalog, validates every entry
// concurrently, and partitions the results. If any entry is invalid, an
// orphan cleanup runs before returning.
func (sm *SafeManager) DetectAvailableSessions() DetectionResult {
	var result DetectionResult

	catalog, err := sm.base.ListSessions()
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not read session catalog: %v", err))
		return result
	}

	type outcome struct {
		md         models.SessionMetadata
		validation storage.FileValidation
	}
	outcomes := make([]outcome, len(catalog))

	var wg sync.WaitGroup
	for i, md := range catalog {
		wg.Add(1)
		go func(i int, md models.SessionMetadata) {
			defer wg.Done()
			outcomes[i] = outcome{md: md, validation: sm.validator.ValidateSessionFile(md.ID)}
		}(i, md)
	}
	wg.Wait()

	for _, o := range outcomes {
		if o.validation.Valid {
			result.ValidSessions = append(result.ValidSessions, o.md)
		} else {
			result.InvalidSessions = append(result.InvalidSessions, InvalidSession{
				Metadata: o.md,
				Errors:   o.validation.Errors,
			})
		}
	}
	sort.Slice(result.ValidSessions, func(i, j int) bool {
		return result.ValidSessions[i].LastModified.After(result.ValidSessions[j].LastModified)
	})

	if len(result.InvalidSessions) > 0 {
		cleanup := sm.validator.CleanupOrphanedEntries()
		result.CleanupPerformed = true
		result.Warnings = append(result.Warnings, cleanup.Errors...)
	}
	return result
}

// RestoreSession validates and loads the session for id, setting it as
// current on success. Quarantined sessions short-circuit without touching
// the file; every failure records itself and attaches recovery options.
func (sm *SafeManager) RestoreSession(id string) RestoreResult {
	if sm.tracker.IsProblematic(id) {
		observability.Emit(sm.log, observability.LevelWarn, observability.EventQuarantine,
			"restore refused for quarantined session", map[string]any{"session_id": id})
		return sm.failure(id, recovery.ErrQuarantined, true)
	}

	validation := sm.validator.ValidateSessionFile(id)
	if !validation.Valid {
		err := fmt.Errorf("session %s failed validation: %v", id, validation.Errors)
		sm.tracker.RecordFailure(id, err)
		observability.Emit(sm.log, observability.LevelError, observability.EventSessionCorrupt,
			"session failed validation", map[string]any{"session_id": id, "errors": validation.Errors})
		return sm.failure(id, err, sm.tracker.IsProblematic(id))
	}

	session, err := sm.base.LoadSession(id)
	if err != nil {
		sm.tracker.RecordFailure(id, err)
		return sm.failure(id, fmt.Errorf("loading session %s: %w", id, err), sm.tracker.IsProblematic(id))
	}

	sm.tracker.RecordSuccess(id)
	sm.base.SetCurrentSession(session)

	return RestoreResult{
		Success:      true,
		Session:      session,
		ContextFiles: contextFileStatus(session),
	}
}

// CleanupInvalidSessions runs an orphan sweep and reports what changed.
func (sm *SafeManager) CleanupInvalidSessions() storage.CleanupResult {
	return sm.validator.CleanupOrphanedEntries()
}

// StartupInitialization runs the integrity check once per process lifetime
// and resets failure tracking on success. It reports whether the vault is in
// a consistent state.
func (sm *SafeManager) StartupInitialization() bool {
	report := sm.validator.StartupIntegrityCheck()
	sm.tracker.CleanupOldRecords()
	if report.Success {
		sm.tracker.Reset()
	}
	return report.Success
}

// failure assembles a structured failure result with ranked options.
func (sm *SafeManager) failure(id string, cause error, quarantined bool) RestoreResult {
	attempts := 0
	if rec, ok := sm.tracker.Record(id); ok {
		attempts = rec.Count
	}

	var valid []models.SessionMetadata
	if catalog, err := sm.base.ListSessions(); err == nil {
		for _, md := range catalog {
			if md.ID != id {
				valid = append(valid, md)
			}
		}
	}

	return RestoreResult{
		Error: cause.Error(),
		RecoveryOptions: recovery.OptionsFor(recovery.Context{
			SessionID:     id,
			AttemptCount:  attempts,
			Quarantined:   quarantined,
			ValidSessions: valid,
			Err:           cause,
		}),
	}
}

func contextFileStatus(session *models.Session) []ContextFileStatus {
	if len(session.ContextFiles) == 0 {
		return nil
	}

	statuses := make([]ContextFileStatus, 0, len(session.ContextFiles))
	for _, path := range session.ContextFiles {
		resolved := path
		if !filepath.IsAbs(resolved) && session.WorkspaceRoot != "" {
			resolved = filepath.Join(session.WorkspaceRoot, resolved)
		}
		statuses = append(statuses, ContextFileStatus{
			Path:    path,
			Present: fsutil.FileExists(resolved),
		})
	}
	return statuses
}
