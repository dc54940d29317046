// Package store implements the persistence collaborator spec §6 names only
// as a contract: a record of every agent session this daemon has spawned,
// enough to list a user's history and recover from a crash without losing
// track of what was running. Message-level content is not persisted here —
// that lives only in the messenger's own chat history.
package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/samsaffron/tuibridge/internal/config"
)

// Status is the lifecycle state of one recorded session.
type Status string

const (
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
	StatusCrashed Status = "crashed"
	StatusLost    Status = "lost"
)

// Session is one row of session history.
type Session struct {
	ID          string
	UserID      int64
	Project     string
	ProjectPath string
	StartedAt   time.Time
	EndedAt     *time.Time
	ExitCode    *int
	Status      Status
}

// Config controls whether and where session history is kept.
type Config struct {
	Enabled    bool
	Path       string
	MaxAgeDays int
}

// DefaultConfigFrom adapts a loaded application config into a store Config.
func DefaultConfigFrom(appCfg config.PersistenceConfig) Config {
	return Config{
		Enabled:    appCfg.Enabled,
		Path:       appCfg.Path,
		MaxAgeDays: appCfg.MaxAgeDays,
	}
}

// Store is the persistence contract the supervisor depends on.
type Store interface {
	Create(ctx context.Context, s Session) error
	End(ctx context.Context, id string, status Status, exitCode *int) error
	Get(ctx context.Context, id string) (*Session, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]Session, error)
	// MarkOrphansLost flags every session still recorded active as lost —
	// called once at startup, since an active row surviving to the next
	// process start means its PTY died without a matching End call.
	MarkOrphansLost(ctx context.Context) (int64, error)
	Close() error
}

// New builds a Store from cfg: a NoopStore when persistence is disabled, or
// a SQLite-backed one otherwise.
func New(cfg Config) (Store, error) {
	if !cfg.Enabled {
		return NoopStore{}, nil
	}
	return NewSQLiteStore(cfg)
}

// ResolveDBPath fills in the default data-directory path when cfg.Path is
// empty, and ensures ":memory:" passes through untouched for tests.
func ResolveDBPath(path string) (string, error) {
	if path == "" || path == ":memory:" {
		if path == ":memory:" {
			return path, nil
		}
		dataDir, err := config.GetDataDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dataDir, "sessions.db"), nil
	}
	return path, nil
}

func ensureDir(path string) error {
	if path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0755)
}

// NoopStore discards everything; used when persistence is disabled.
type NoopStore struct{}

func (NoopStore) Create(ctx context.Context, s Session) error { return nil }
func (NoopStore) End(ctx context.Context, id string, status Status, exitCode *int) error {
	return nil
}
func (NoopStore) Get(ctx context.Context, id string) (*Session, error)              { return nil, nil }
func (NoopStore) ListByUser(ctx context.Context, userID int64, limit int) ([]Session, error) {
	return nil, nil
}
func (NoopStore) MarkOrphansLost(ctx context.Context) (int64, error) { return 0, nil }
func (NoopStore) Close() error                                      { return nil }
