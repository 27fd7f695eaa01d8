// Package internal provides the App struct that wires all components of the
// session vault together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/valter-silva-au/session-vault/internal/cli"
	"github.com/valter-silva-au/session-vault/internal/core"
	"github.com/valter-silva-au/session-vault/internal/observability"
	"github.com/valter-silva-au/session-vault/internal/recovery"
	"github.com/valter-silva-au/session-vault/internal/session"
	"github.com/valter-silva-au/session-vault/internal/storage"
	"github.com/valter-silva-au/session-vault/pkg/models"
)

// App holds all service dependencies for the session vault.
type App struct {
	BasePath string
	Config   *models.VaultConfig

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Storage layer
	Store     *storage.Store
	Validator *storage.Validator

	// Recovery
	Tracker *recovery.Tracker

	// Session services
	Mgr       session.Manager
	Safe      *session.SafeManager
	AutoSaver *session.AutoSaver

	// Observability
	EventLog observability.EventLog
}

// NewApp creates and wires all components of the session vault.
// basePath is the root directory where all data is stored (typically
// ~/.svault or the directory containing .svaultconfig).
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Observability ---
	eventLogPath := filepath.Join(basePath, ".svault_events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		app.EventLog = nil
	}

	// --- Storage layer ---
	app.Store = storage.NewStore(basePath, cfg.Storage, app.EventLog)
	app.Validator = storage.NewValidator(app.Store)

	// --- Recovery ---
	app.Tracker = recovery.NewTracker(cfg.Recovery.QuarantineThreshold, cfg.Recovery.Retention())

	// --- Session services ---
	app.Mgr = session.NewManager(app.Store)
	app.Safe = session.NewSafeManager(app.Mgr, app.Validator, app.Tracker, app.EventLog)
	if cfg.AutoSave.Enabled {
		app.AutoSaver = session.NewAutoSaver(app.Mgr, cfg.AutoSave.Interval(), app.EventLog)
		app.AutoSaver.Start()
	}

	// Reconcile the index with the file system before any command runs.
	// Non-fatal: an inconsistent vault still serves the sessions it can.
	app.Safe.StartupInitialization()

	// --- Wire CLI package-level variables ---
	cli.Mgr = app.Mgr
	cli.Safe = app.Safe
	cli.Store = app.Store
	cli.Validator = app.Validator
	cli.EventLog = app.EventLog

	return app, nil
}

// Close releases resources held by the App. It stops the auto-saver and
// closes the event log; safe to call when either is nil.
func (a *App) Close() error {
	if a.AutoSaver != nil {
		a.AutoSaver.Stop()
	}
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the base path for the session vault data
// directory. It checks the SVAULT_HOME env var, then walks up from the
// current directory looking for .svaultconfig, then falls back to ~/.svault.
func ResolveBasePath() string {
	if home := os.Getenv("SVAULT_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err == nil {
		for {
			if _, statErr := os.Stat(filepath.Join(dir, ".svaultconfig")); statErr == nil {
				return dir
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		cwd, _ := os.Getwd()
		return cwd
	}
	return filepath.Join(home, ".svault")
}
