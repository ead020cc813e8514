// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/pomo/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// createdLayout is fixed-width so created_at sorts lexically.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for pomodoro session records.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			study_period INTEGER NOT NULL CHECK (study_period > 0),
			short_break INTEGER NOT NULL,
			long_break INTEGER NOT NULL,
			completed_rounds INTEGER NOT NULL DEFAULT 0 CHECK (completed_rounds >= 0),
			start_time TEXT,
			end_time TEXT,
			purpose TEXT NOT NULL DEFAULT '',
			tag TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a session record, assigning its id and creation time.
func (s *Store) InsertSession(ctx context.Context, sess model.Session) (model.Session, error) {
	sess.ID = uuid.NewString()
	sess.CreatedAt = s.now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, study_period, short_break, long_break, completed_rounds, start_time, end_time, purpose, tag, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.UserID,
		sess.StudyPeriod,
		sess.ShortBreak,
		sess.LongBreak,
		sess.CompletedRounds,
		formatTime(sess.StartTime),
		formatTime(sess.EndTime),
		sess.Purpose,
		sess.Tag,
		sess.CreatedAt.Format(createdLayout),
	)
	if err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// ListSessions returns session records newest first. An empty userID lists every user.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, study_period, short_break, long_break, completed_rounds, start_time, end_time, purpose, tag, created_at
		 FROM sessions
		 WHERE (? = '' OR user_id = ?)
		 ORDER BY created_at DESC, rowid DESC`,
		userID, userID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	sessions := []model.Session{}
	for rows.Next() {
		var sess model.Session
		var startTime, endTime sql.NullString
		var createdAt string
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.StudyPeriod, &sess.ShortBreak, &sess.LongBreak,
			&sess.CompletedRounds, &startTime, &endTime, &sess.Purpose, &sess.Tag, &createdAt); err != nil {
			return nil, err
		}
		if sess.StartTime, err = parseTime(startTime); err != nil {
			return nil, err
		}
		if sess.EndTime, err = parseTime(endTime); err != nil {
			return nil, err
		}
		if sess.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
