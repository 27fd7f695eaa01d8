package cli

import (
	"github.com/valter-silva-au/session-vault/internal/observability"
	"github.com/valter-silva-au/session-vault/internal/session"
	"github.com/valter-silva-au/session-vault/internal/storage"
)

// Service instances, set during app initialization in internal/app.go.
var (
	Mgr       session.Manager
	Safe      *session.SafeManager
	Store     *storage.Store
	Validator *storage.Validator
	EventLog  observability.EventLog
)
