// Package recovery prevents repeated restoration attempts against sessions
// that are known to be broken, and supplies callers with ranked next steps.
package recovery

import (
	"errors"
	"sync"
	"time"
)

// ErrQuarantined indicates restoration was attempted against a session that
// has crossed the failure threshold.
var ErrQuarantined = errors.New("session is quarantined after repeated failures")

// Defaults used when the corresponding config value is zero.
const (
	DefaultQuarantineThreshold = 3
	DefaultRetention           = 24 * time.Hour
)

// FailureRecord tracks consecutive restoration failures for one session id.
type FailureRecord struct {
	SessionID    string    `json:"session_id"`
	Count        int       `json:"count"`
	FirstFailure time.Time `json:"first_failure"`
	LastFailure  time.Time `json:"last_failure"`
	LastError    string    `json:"last_error,omitempty"`
	Problematic  bool      `json:"problematic"`
}

// Tracker records restoration failures and quarantines sessions whose
// consecutive failure count reaches the threshold. Records are cleared on
// success or explicit reset and aged out by the retention sweep.
type Tracker struct {
	threshold int
	retention time.Duration

	mu      sync.RWMutex
	records map[string]*FailureRecord
	now     func() time.Time // test hook
}

// NewTracker creates a failure tracker. Zero threshold or retention selects
// the package defaults.
func NewTracker(threshold int, retention time.Duration) *Tracker {
	if threshold <= 0 {
		threshold = DefaultQuarantineThreshold
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Tracker{
		threshold: threshold,
		retention: retention,
		records:   make(map[string]*FailureRecord),
		now:       time.Now,
	}
}

// RecordFailure increments the consecutive failure count for id. Once the
// count reaches the threshold the session becomes problematic.
func (t *Tracker) RecordFailure(id string, cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	rec, ok := t.records[id]
	if !ok {
		rec = &FailureRecord{SessionID: id, FirstFailure: now}
		t.records[id] = rec
	}
	rec.Count++
	rec.LastFailure = now
	if cause != nil {
		rec.LastError = cause.Error()
	}
	rec.Problematic = rec.Count >= t.threshold
}

// RecordSuccess clears the failure record for id, un-quarantining it.
func (t *Tracker) RecordSuccess(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, id)
}

// IsProblematic reports whether id is quarantined.
func (t *Tracker) IsProblematic(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.records[id]
	return ok && rec.Problematic
}

// Record returns a copy of the failure record for id, if any.
func (t *Tracker) Record(id string) (FailureRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.records[id]
	if !ok {
		return FailureRecord{}, false
	}
	return *rec, true
}

// Reset clears all failure records. Used on successful startup
// initialization.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[string]*FailureRecord)
}

// CleanupOldRecords removes records whose last failure is older than the
// retention window and returns how many were removed.
func (t *Tracker) CleanupOldRecords() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.retention)
	removed := 0
	for id, rec := range t.records {
		if rec.LastFailure.Before(cutoff) {
			delete(t.records, id)
			removed++
		}
	}
	return removed
}
