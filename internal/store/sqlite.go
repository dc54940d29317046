package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// schema is the full, current schema; there is no prior version to migrate
// from, so unlike the ancestor store this package has no migration table.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL,
    project TEXT NOT NULL,
    project_path TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    ended_at TIMESTAMP,
    exit_code INTEGER,
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'ended', 'crashed', 'lost'))
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
`

// SQLiteStore implements Store using a pure-Go SQLite driver, matching how
// the ancestor session store avoids cgo entirely.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the session history
// database at cfg.Path, configured for concurrent access the same way the
// ancestor store configures its connection: WAL journaling, a busy
// timeout, and foreign keys on.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	dbPath, err := ResolveDBPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("store: resolve db path: %w", err)
	}
	if err := ensureDir(dbPath); err != nil {
		return nil, fmt.Errorf("store: create data directory: %w", err)
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, project, project_path, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.Project, sess.ProjectPath, sess.StartedAt, string(StatusActive))
	if err != nil {
		return fmt.Errorf("store: create session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) End(ctx context.Context, id string, status Status, exitCode *int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, exit_code = ?, ended_at = ? WHERE id = ?`,
		string(status), exitCode, time.Now(), id)
	if err != nil {
		return fmt.Errorf("store: end session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, project, project_path, started_at, ended_at, exit_code, status
		FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) ListByUser(ctx context.Context, userID int64, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, project, project_path, started_at, ended_at, exit_code, status
		FROM sessions WHERE user_id = ? ORDER BY started_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MarkOrphansLost(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, ended_at = ? WHERE status = ?`,
		string(StatusLost), time.Now(), string(StatusActive))
	if err != nil {
		return 0, fmt.Errorf("store: mark orphans lost: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*Session, error) {
	var sess Session
	var endedAt sql.NullTime
	var exitCode sql.NullInt64
	var status string

	if err := r.Scan(&sess.ID, &sess.UserID, &sess.Project, &sess.ProjectPath,
		&sess.StartedAt, &endedAt, &exitCode, &status); err != nil {
		return nil, err
	}
	sess.Status = Status(status)
	if endedAt.Valid {
		sess.EndedAt = &endedAt.Time
	}
	if exitCode.Valid {
		code := int(exitCode.Int64)
		sess.ExitCode = &code
	}
	return &sess, nil
}
