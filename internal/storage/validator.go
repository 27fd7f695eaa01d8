package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/valter-silva-au/session-vault/internal/fsutil"
	"github.com/valter-silva-au/session-vault/internal/observability"
	"github.com/valter-silva-au/session-vault/pkg/models"
)

// FileValidation is the result of checking a single session file. Validation
// never fails with an error; every problem is appended to Errors so bulk
// validation is failure-isolated per session.
type FileValidation struct {
	SessionID string   `json:"session_id"`
	Valid     bool     `json:"valid"`
	Errors    []string `json:"errors,omitempty"`
}

// IndexValidation is the symmetric difference between index keys and valid
// on-disk sessions.
type IndexValidation struct {
	// OrphanedEntries are index keys with no corresponding valid file.
	OrphanedEntries []string `json:"orphaned_entries,omitempty"`
	// OrphanedFiles are valid on-disk sessions with no index entry.
	OrphanedFiles []string `json:"orphaned_files,omitempty"`
}

// CleanupResult reports what an orphan sweep changed.
type CleanupResult struct {
	CleanedSessions []string `json:"cleaned_sessions,omitempty"`
	EntriesRemoved  int      `json:"entries_removed"`
	FilesAdopted    int      `json:"files_adopted"`
	Errors          []string `json:"errors,omitempty"`
}

// IntegrityReport is the outcome of a full validate-then-cleanup pass.
type IntegrityReport struct {
	Success        bool          `json:"success"`
	IssuesFound    int           `json:"issues_found"`
	IssuesResolved int           `json:"issues_resolved"`
	Cleanup        CleanupResult `json:"cleanup"`
	Summary        string        `json:"summary"`
}

// Validator detects and repairs divergence between the session index and the
// actual file system.
type Validator struct {
	store *Store
}

// NewValidator creates a validator over the given store.
func NewValidator(store *Store) *Validator {
	return &Validator{store: store}
}

// ValidateSessionFile checks that the file for id exists, is within size
// limits, unwraps cleanly, passes its checksum, deserializes into a
// structurally well-formed session, and satisfies created <= lastModified.
func (v *Validator) ValidateSessionFile(id string) FileValidation {
	result := FileValidation{SessionID: id}
	fail := func(format string, args ...any) {
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}

	if err := validID(id); err != nil {
		fail("invalid session id: %v", err)
		return result
	}

	raw, err := fsutil.SafeReadFile(v.store.SessionPath(id), v.store.cfg.MaxFileSize)
	if err != nil {
		fail("%v", err)
		return result
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		fail("%v", err)
		return result
	}
	payload, err := v.store.payload(env)
	if err != nil {
		fail("%v", err)
		return result
	}

	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		fail("deserializing session: %v", err)
		return result
	}

	if session.ID != id {
		fail("embedded id %q does not match file id %q", session.ID, id)
	}
	if session.Created.After(session.LastModified) {
		fail("created %s is after last_modified %s",
			session.Created.Format("2006-01-02T15:04:05Z07:00"),
			session.LastModified.Format("2006-01-02T15:04:05Z07:00"))
	}
	tc := session.TokenCount
	if tc.Total < 0 || tc.Input < 0 || tc.Output < 0 {
		fail("negative token count (total=%d input=%d output=%d)", tc.Total, tc.Input, tc.Output)
	}
	for i, m := range session.Messages {
		if m.ID == "" {
			fail("message %d has no id", i)
		}
		if m.Role == "" {
			fail("message %d has no role", i)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateIndex computes the symmetric difference between index keys and the
// ids of structurally valid files on disk. Per-file validation fans out
// concurrently; one bad session cannot abort validation of the rest.
func (v *Validator) ValidateIndex() (IndexValidation, error) {
	var result IndexValidation

	idx, err := v.store.Index()
	if err != nil {
		return result, fmt.Errorf("validating index: %w", err)
	}
	fileIDs, err := v.store.ListSessionFileIDs()
	if err != nil {
		return result, fmt.Errorf("validating index: %w", err)
	}

	// Validate the union of index keys and on-disk files once each.
	union := make(map[string]struct{}, len(idx.Sessions)+len(fileIDs))
	for id := range idx.Sessions {
		union[id] = struct{}{}
	}
	for _, id := range fileIDs {
		union[id] = struct{}{}
	}

	valid := make(map[string]bool, len(union))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for id := range union {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			ok := v.ValidateSessionFile(id).Valid
			mu.Lock()
			valid[id] = ok
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	for id := range idx.Sessions {
		if !valid[id] {
			result.OrphanedEntries = append(result.OrphanedEntries, id)
		}
	}
	for _, id := range fileIDs {
		if _, indexed := idx.Sessions[id]; !indexed && valid[id] {
			result.OrphanedFiles = append(result.OrphanedFiles, id)
		}
	}
	sort.Strings(result.OrphanedEntries)
	sort.Strings(result.OrphanedFiles)
	return result, nil
}

// CleanupOrphanedEntries removes every orphaned index entry and adopts every
// orphaned file that independently validates, inserting fresh metadata
// instead of deleting data. Entries that cannot be repaired are reported in
// Errors but do not halt the sweep. Running it twice with no intervening
// changes performs no additional work.
func (v *Validator) CleanupOrphanedEntries() CleanupResult {
	var result CleanupResult

	validation, err := v.ValidateIndex()
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	if len(validation.OrphanedEntries) == 0 && len(validation.OrphanedFiles) == 0 {
		return result
	}

	idx, err := v.store.Index()
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	sessions := idx.Sessions

	for _, id := range validation.OrphanedEntries {
		delete(sessions, id)
		result.CleanedSessions = append(result.CleanedSessions, id)
		result.EntriesRemoved++
	}

	for _, id := range validation.OrphanedFiles {
		session, err := v.store.ReadSession(id)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("adopting %s: %v", id, err))
			continue
		}
		sessions[id] = session.Metadata()
		result.FilesAdopted++
		observability.Emit(v.store.log, observability.LevelInfo, observability.EventSessionAdopted,
			"orphaned file adopted into index", map[string]any{"session_id": id})
	}

	if err := v.store.RewriteIndex(sessions); err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	return result
}

// StartupIntegrityCheck runs validation then cleanup and produces a single
// human-readable summary. Called once at process start and on demand via the
// doctor command.
func (v *Validator) StartupIntegrityCheck() IntegrityReport {
	var report IntegrityReport

	validation, err := v.ValidateIndex()
	if err != nil {
		report.Summary = fmt.Sprintf("integrity check failed: %v", err)
		report.Cleanup.Errors = append(report.Cleanup.Errors, err.Error())
		return report
	}

	report.IssuesFound = len(validation.OrphanedEntries) + len(validation.OrphanedFiles)
	if report.IssuesFound > 0 {
		report.Cleanup = v.CleanupOrphanedEntries()
		report.IssuesResolved = report.Cleanup.EntriesRemoved + report.Cleanup.FilesAdopted
	}
	report.Success = len(report.Cleanup.Errors) == 0

	var parts []string
	if report.IssuesFound == 0 {
		parts = append(parts, "index and session files are consistent")
	} else {
		parts = append(parts, fmt.Sprintf("%d issue(s) found", report.IssuesFound))
		if report.Cleanup.EntriesRemoved > 0 {
			parts = append(parts, fmt.Sprintf("%d orphaned index entr(ies) removed", report.Cleanup.EntriesRemoved))
		}
		if report.Cleanup.FilesAdopted > 0 {
			parts = append(parts, fmt.Sprintf("%d orphaned file(s) adopted", report.Cleanup.FilesAdopted))
		}
		if n := len(report.Cleanup.Errors); n > 0 {
			parts = append(parts, fmt.Sprintf("%d unresolved error(s)", n))
		}
	}
	report.Summary = strings.Join(parts, "; ")

	observability.Emit(v.store.log, observability.LevelInfo, observability.EventIntegrityCheck,
		report.Summary, map[string]any{
			"issues_found":    report.IssuesFound,
			"issues_resolved": report.IssuesResolved,
		})
	return report
}
