package sqlite

import (
	"database/sql"
	"snapfix/internal/domain"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = domain.ErrNotFound

const schema = `
CREATE TABLE IF NOT EXISTS dept_admins (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	username    TEXT NOT NULL UNIQUE,
	department  TEXT NOT NULL,
	created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_dept_admins_department ON dept_admins(department);

CREATE TABLE IF NOT EXISTS reports (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	tracking_id            TEXT UNIQUE,
	issue_type             TEXT NOT NULL,
	raw_label              TEXT NOT NULL DEFAULT '',
	location               TEXT NOT NULL DEFAULT '',
	latitude               REAL,
	longitude              REAL,
	description            TEXT NOT NULL DEFAULT '',
	probability            REAL NOT NULL DEFAULT 0,
	decision_source        TEXT NOT NULL DEFAULT '',
	priority               TEXT NOT NULL,
	primary_department     TEXT NOT NULL,
	status                 TEXT NOT NULL DEFAULT 'Pending',
	dept_status            TEXT,
	dept_remarks           TEXT NOT NULL DEFAULT '',
	remarks                TEXT NOT NULL DEFAULT '',
	assigned_dept_admin_id INTEGER REFERENCES dept_admins(id),
	telegram_id            TEXT NOT NULL DEFAULT '',
	timestamp              DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON reports(timestamp);
CREATE INDEX IF NOT EXISTS idx_reports_assignee ON reports(assigned_dept_admin_id);

CREATE TABLE IF NOT EXISTS notification_outbox (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	report_id     INTEGER NOT NULL REFERENCES reports(id),
	tracking_id   TEXT NOT NULL,
	recipient     TEXT NOT NULL,
	message       TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	attempt_count INTEGER NOT NULL DEFAULT 0,
	last_error    TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL,
	processed_at  DATETIME
);
CREATE INDEX IF NOT EXISTS idx_outbox_status ON notification_outbox(status, created_at);
`

// InitDB opens the database and applies the schema. Write transactions take
// the database lock up front so concurrent status writes queue instead of
// failing with SQLITE_BUSY halfway through.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	// Migration: add location column to databases created before it existed.
	var colCount int
	_ = db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('reports') WHERE name = 'location'`).Scan(&colCount)
	if colCount == 0 {
		_, _ = db.Exec(`ALTER TABLE reports ADD COLUMN location TEXT NOT NULL DEFAULT ''`)
	}

	return db, nil
}

func dsn(path string) string {
	params := "_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

// Store is the report store used by the lifecycle manager.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sql.DB {
	return s.db
}
