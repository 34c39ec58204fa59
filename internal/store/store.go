package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// StorageError indicates the durable store is unavailable or failed to
// initialize. The app surfaces it once and continues in a degraded,
// non-persistent mode.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store holds the SQLite handle and provides access to repositories.
type Store struct {
	db *sql.DB
}

var (
	sharedOnce sync.Once
	shared     *Store
	sharedErr  error
)

// OpenShared opens the process-wide store exactly once. Later calls return
// the already-open store regardless of dsn.
func OpenShared(dsn string) (*Store, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = Open(dsn)
	})
	return shared, sharedErr
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, &StorageError{Op: "configure", Err: err}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, &StorageError{Op: "migrate", Err: err}
	}

	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Conversations returns the conversation repository backed by this store.
func (s *Store) Conversations() *ConversationRepo {
	return &ConversationRepo{db: s.db}
}

// Prefs returns the scalar preference repository backed by this store.
func (s *Store) Prefs() *PrefsRepo {
	return &PrefsRepo{db: s.db}
}

// Events returns the LLM event repository backed by this store.
func (s *Store) Events() *EventRepo {
	return &EventRepo{db: s.db}
}

// applyPragmas configures SQLite for single-user durability.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func createSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			class      INTEGER NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			pinned     INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			messages   TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_class
			ON conversations(class, pinned DESC, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS prefs (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS llm_events (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			provider      TEXT NOT NULL,
			model         TEXT NOT NULL,
			purpose       TEXT NOT NULL,
			input_tokens  INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			latency_ms    INTEGER NOT NULL DEFAULT 0,
			success       INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			request_body  TEXT NOT NULL DEFAULT '',
			response_body TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. VIDYA_DB environment variable
// 2. $XDG_DATA_HOME/vidya/vidya.db
// 3. ~/.local/share/vidya/vidya.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("VIDYA_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "vidya", "vidya.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
