// Package fsutil provides the low-level file primitives the session vault is
// built on: atomic write-with-backup, size-bounded reads, lossless
// compression, and fixed-length checksums.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// BackupSuffix is appended to a file path to form its backup sibling.
const BackupSuffix = ".bak"

var (
	// ErrNotFound indicates the requested file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrSizeLimit indicates a file exceeds the configured read bound.
	ErrSizeLimit = errors.New("file exceeds size limit")
)

// AtomicWriteOptions configures WriteFileAtomic.
type AtomicWriteOptions struct {
	// Mode is the permission mode for the target file. Zero means 0o600.
	Mode os.FileMode
	// CreateBackup copies the current target bytes to path+".bak" before the
	// new content is installed. At most one backup per target is retained.
	CreateBackup bool
	// OnBackupError is invoked when the backup copy fails. The primary write
	// proceeds regardless; a failed backup is never fatal. May be nil.
	OnBackupError func(error)
}

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it over path, so a crash mid-write never leaves a half-written
// target. The parent directory is synced after the rename.
func WriteFileAtomic(path string, data []byte, opts AtomicWriteOptions) error {
	mode := opts.Mode
	if mode == 0 {
		mode = 0o600
	}

	if opts.CreateBackup && FileExists(path) {
		if err := copyFile(path, path+BackupSuffix); err != nil {
			if opts.OnBackupError != nil {
				opts.OnBackupError(err)
			}
		}
	}

	parent := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(parent, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting temp file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if runtime.GOOS != "windows" {
			return fmt.Errorf("installing %s: %w", path, err)
		}
		// Windows cannot rename over an existing file.
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return fmt.Errorf("removing destination before rename: %w", rmErr)
		}
		if err := os.Rename(tmpPath, path); err != nil {
			return fmt.Errorf("installing %s after remove: %w", path, err)
		}
	}
	cleanup = false

	if dir, err := os.Open(parent); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}
	return nil
}

// SafeReadFile reads path if it exists and is no larger than maxSize bytes.
// A maxSize of zero or less disables the bound.
func SafeReadFile(path string, maxSize int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("reading %s (%d bytes, limit %d): %w", path, info.Size(), maxSize, ErrSizeLimit)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// FileExists reports whether a regular file exists at path.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SafeDeleteFile removes path. Deleting a non-existent path succeeds
// silently, so partial cleanups can be retried.
func SafeDeleteFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("syncing %s: %w", dst, err)
	}
	return out.Close()
}
