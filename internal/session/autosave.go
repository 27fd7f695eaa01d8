package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/valter-silva-au/session-vault/internal/observability"
)

// AutoSaver periodically saves the current session. Ticks are single-flight:
// a tick that fires while the previous save is still running is skipped, not
// queued. Stop cancels the timer but does not abort an in-flight save.
type AutoSaver struct {
	mgr      Manager
	interval time.Duration
	log      observability.EventLog

	inFlight atomic.Bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewAutoSaver creates an auto-saver over mgr's current session.
func NewAutoSaver(mgr Manager, interval time.Duration, log observability.EventLog) *AutoSaver {
	return &AutoSaver{
		mgr:      mgr,
		interval: interval,
		log:      log,
	}
}

// Start launches the repeating save task. Starting an already-running
// auto-saver is a no-op.
func (a *AutoSaver) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop != nil {
		return
	}
	a.stop = make(chan struct{})
	a.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				a.saveCurrent()
			}
		}
	}(a.stop, a.done)
}

// Stop cancels the timer and waits for the loop to exit. An in-flight save
// started before Stop completes normally.
func (a *AutoSaver) Stop() {
	a.mu.Lock()
	stop, done := a.stop, a.done
	a.stop, a.done = nil, nil
	a.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// saveCurrent persists the current session if one is set. Returns whether a
// save was attempted, for tests and the skip accounting.
func (a *AutoSaver) saveCurrent() bool {
	if !a.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer a.inFlight.Store(false)

	current := a.mgr.CurrentSession()
	if current == nil {
		return false
	}

	if err := a.mgr.SaveSession(current); err != nil {
		observability.Emit(a.log, observability.LevelError, observability.EventAutoSave,
			"auto-save failed", map[string]any{"session_id": current.ID, "error": err.Error()})
		return true
	}
	observability.Emit(a.log, observability.LevelInfo, observability.EventAutoSave,
		"auto-save completed", map[string]any{"session_id": current.ID})
	return true
}
