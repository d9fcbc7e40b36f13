package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "hl7v")
	}
	home, _ := os.UserHomeDir()
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "hl7v")
	}
	return filepath.Join(home, ".local", "share", "hl7v")
}

func DBPath() string {
	return filepath.Join(DataDir(), "history.db")
}

// LogPath is where the viewer writes its log while it owns the terminal.
func LogPath() string {
	return filepath.Join(DataDir(), "hl7v.log")
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL for concurrent reads during writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate() error {
	var version int
	row := s.db.QueryRow("PRAGMA user_version")
	row.Scan(&version)

	if version == 0 {
		return s.createSchema()
	}
	return nil
}

func (s *Store) createSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS messages (
    id            INTEGER PRIMARY KEY,
    raw           TEXT    NOT NULL,
    source        TEXT    NOT NULL,
    message_type  TEXT    DEFAULT '',
    control_id    TEXT    DEFAULT '',
    segment_count INTEGER DEFAULT 0,
    segment_types TEXT    DEFAULT '',
    created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at);
CREATE INDEX IF NOT EXISTS idx_messages_type ON messages(message_type);
CREATE INDEX IF NOT EXISTS idx_messages_source ON messages(source);

PRAGMA user_version = 1;
`
	_, err := s.db.Exec(schema)
	return err
}

// Reset deletes the whole history. Used by --clear-history.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM messages")
	return err
}
