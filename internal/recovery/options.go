package recovery

import (
	"fmt"

	"github.com/valter-silva-au/session-vault/pkg/models"
)

// Action identifies a recovery path the caller can take.
type Action string

const (
	// ActionNewSession starts a fresh session, abandoning the broken one.
	ActionNewSession Action = "new_session"
	// ActionSelectSession switches to a different, currently-valid session.
	ActionSelectSession Action = "select_session"
	// ActionRetry attempts the same restoration again.
	ActionRetry Action = "retry"
)

// Option is one actionable recovery path, rendered directly by callers.
type Option struct {
	Action      Action `json:"action"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Recommended bool   `json:"recommended"`
}

// Context describes a restoration failure for option ranking.
type Context struct {
	SessionID     string
	AttemptCount  int
	Quarantined   bool
	ValidSessions []models.SessionMetadata
	Err           error
}

// OptionsFor returns an ordered list of recovery options for the given
// failure. Ordering and the recommended flag are deterministic functions of
// the context.
func OptionsFor(ctx Context) []Option {
	var options []Option

	// A fresh session is always possible; recommend it when retrying is
	// pointless (quarantine) or this is the first failure.
	options = append(options, Option{
		Action:      ActionNewSession,
		Label:       "Start a new session",
		Description: "Create a fresh session and leave the broken one on disk for inspection",
		Recommended: ctx.Quarantined || ctx.AttemptCount <= 1,
	})

	if n := len(ctx.ValidSessions); n > 0 {
		options = append(options, Option{
			Action:      ActionSelectSession,
			Label:       "Switch to another session",
			Description: fmt.Sprintf("Select one of %d valid session(s)", n),
		})
	}

	if !ctx.Quarantined {
		options = append(options, Option{
			Action:      ActionRetry,
			Label:       "Retry",
			Description: fmt.Sprintf("Attempt to restore %s again (attempt %d so far)", ctx.SessionID, ctx.AttemptCount),
		})
	}

	return options
}
