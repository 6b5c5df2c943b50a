/*
Package storage keeps the activation audit trail in SQLite.

Each trigger activation leaves one row: when it happened, how it ended, and,
outside privacy mode, the application and shortcut involved. Expansion
bodies are never written here.

The database lives next to the secure store as audit.db and uses
modernc.org/sqlite (a pure Go, CGo-free implementation). When it cannot be
opened the audit trail is disabled and every operation becomes a no-op.
*/
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bobersnip/TextShortcutter/internal/logging"
)

// DBFileName is the audit database file inside the data directory.
const DBFileName = "audit.db"

// Storage defines the audit trail operations.
type Storage interface {
	// Init opens the database and runs migrations.
	Init() error

	// RecordActivations appends a batch of activations in one transaction.
	RecordActivations(events []Activation) error

	// Counts aggregates activations since a given time by outcome.
	Counts(since time.Time) (map[Outcome]int64, error)

	// Recent returns the newest activations first.
	Recent(limit int) ([]Activation, error)

	// Cleanup removes records older than retention and reports how many.
	Cleanup(retention time.Duration) (int64, error)

	// Clear removes every record.
	Clear() error

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	mu       sync.Mutex
	initOnce sync.Once
}

// NewStorage returns storage for dataDir/audit.db. Nothing is opened until
// Init.
func NewStorage(dataDir string) *SQLiteStorage {
	return &SQLiteStorage{
		dbPath:  filepath.Join(dataDir, DBFileName),
		enabled: true,
	}
}

// Path is the database file.
func (s *SQLiteStorage) Path() string { return s.dbPath }

// Enabled reports whether the database is usable.
func (s *SQLiteStorage) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled && s.db != nil
}

// Init initializes the database and runs migrations.
//
// If initialization fails, storage is disabled and subsequent operations
// become no-ops (graceful degradation).
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return nil
	}

	var initErr error
	s.initOnce.Do(func() {
		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0700); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			s.enabled = false
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			s.enabled = false
			logging.Warnf("%v", initErr)
			return
		}
		// One connection keeps writes serialized inside SQLite as well.
		db.SetMaxOpenConns(1)
		s.db = db

		if err := db.Ping(); err != nil {
			initErr = fmt.Errorf("failed to ping database: %w", err)
			s.disable()
			logging.Warnf("%v", initErr)
			return
		}

		if err := s.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			s.disable()
			logging.Warnf("%v", initErr)
			return
		}

		if err := os.Chmod(s.dbPath, 0600); err != nil {
			logging.Debugf("could not restrict %s: %v", s.dbPath, err)
		}
	})

	return initErr
}

func (s *SQLiteStorage) disable() {
	s.enabled = false
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}
