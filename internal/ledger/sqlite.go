package ledger

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS ledger (
	path         TEXT PRIMARY KEY,
	processed_at TEXT NOT NULL
);
`

// SQLiteStore persists the ledger in a SQLite database.
type SQLiteStore struct {
	conn   *sql.DB
	path   string
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	return &SQLiteStore{conn: conn, path: path, logger: logger}, nil
}

// Location returns the database path.
func (s *SQLiteStore) Location() string { return s.path }

// Load reads every row. Rows with an unparsable timestamp are skipped.
func (s *SQLiteStore) Load() (*Ledger, error) {
	rows, err := s.conn.Query(`SELECT path, processed_at FROM ledger`)
	if err != nil {
		return nil, fmt.Errorf("ledger: load: %w", err)
	}
	defer rows.Close()

	l := New()
	for rows.Next() {
		var path, ts string
		if err := rows.Scan(&path, &ts); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		t, err := ParseTime(ts)
		if err != nil {
			s.logger.Warn("ledger: skipping invalid row",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		l.entries[path] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: load: %w", err)
	}
	s.logger.Info("ledger: loaded", slog.String("path", s.path), slog.Int("entries", l.Len()))
	return l, nil
}

// Save replaces the table contents with l's entries in one transaction.
func (s *SQLiteStore) Save(l *Ledger) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM ledger`); err != nil {
		return fmt.Errorf("ledger: clear: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO ledger (path, processed_at) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("ledger: prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, e := range l.Entries() {
		if _, err := stmt.Exec(e.Path, FormatTime(e.ProcessedAt)); err != nil {
			return fmt.Errorf("ledger: insert %s: %w", e.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger: commit: %w", err)
	}
	s.logger.Info("ledger: saved", slog.String("path", s.path), slog.Int("entries", l.Len()))
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
