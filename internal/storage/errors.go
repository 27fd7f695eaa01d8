package storage

import (
	"errors"

	"github.com/valter-silva-au/session-vault/internal/fsutil"
)

var (
	// ErrNotFound indicates the session file is absent. It aliases the
	// fsutil sentinel so callers only need to check one package.
	ErrNotFound = fsutil.ErrNotFound
	// ErrSizeLimit indicates a session file exceeds the configured bound.
	ErrSizeLimit = fsutil.ErrSizeLimit
	// ErrCorruption indicates a checksum mismatch or an undecodable
	// envelope. Reads fail with this rather than returning possibly-wrong
	// data.
	ErrCorruption = errors.New("session data corrupted")
	// ErrValidation indicates a structural invariant violation, such as
	// created > lastModified or an id mismatch.
	ErrValidation = errors.New("session failed validation")
)
