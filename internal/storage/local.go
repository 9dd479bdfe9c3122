package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// LocalDB is the local-first session store backed by an embedded SQLite file.
type LocalDB struct {
	db *sql.DB
}

const localSchema = `
CREATE TABLE IF NOT EXISTS splits (
	id           TEXT PRIMARY KEY,
	user_id      INTEGER NOT NULL,
	name         TEXT NOT NULL,
	color        TEXT NOT NULL DEFAULT '',
	weekday_mask INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS split_exercises (
	split_id    TEXT NOT NULL REFERENCES splits (id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	exercise_id TEXT NOT NULL,
	PRIMARY KEY (split_id, position)
);

CREATE TABLE IF NOT EXISTS workout_sessions (
	id              TEXT PRIMARY KEY,
	user_id         INTEGER NOT NULL,
	split_id        TEXT,
	state           TEXT NOT NULL DEFAULT 'active',
	started_at      INTEGER NOT NULL,
	finished_at     INTEGER,
	duration_min    INTEGER,
	total_volume_kg REAL,
	total_sets      INTEGER,
	note            TEXT,
	session_name    TEXT
);

CREATE INDEX IF NOT EXISTS idx_workout_sessions_user_state ON workout_sessions (user_id, state);

CREATE TABLE IF NOT EXISTS session_exercises (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES workout_sessions (id) ON DELETE CASCADE,
	exercise_id TEXT NOT NULL,
	position    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_exercises_session ON session_exercises (session_id, position);

CREATE TABLE IF NOT EXISTS session_sets (
	id                  TEXT PRIMARY KEY,
	session_exercise_id TEXT NOT NULL REFERENCES session_exercises (id) ON DELETE CASCADE,
	position            INTEGER NOT NULL,
	weight_kg           REAL NOT NULL DEFAULT 0,
	reps                INTEGER NOT NULL DEFAULT 0,
	duration_sec        INTEGER,
	distance_m          REAL,
	rest_sec            INTEGER,
	is_warmup           INTEGER NOT NULL DEFAULT 0,
	is_completed        INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_session_sets_exercise ON session_sets (session_exercise_id, position);
`

// OpenLocal opens (or creates) the SQLite database at path and ensures the schema exists.
func OpenLocal(path string) (*LocalDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir for %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening local db: %w", err)
	}
	// A single connection serializes writers and keeps transactions simple.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(localSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating local schema: %w", err)
	}
	return &LocalDB{db: db}, nil
}

// Close closes the local database.
func (l *LocalDB) Close() error {
	return l.db.Close()
}

// Times are stored as unix milliseconds.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func fromNullMillis(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := fromMillis(ms.Int64)
	return &t
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
