package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite connection backing itemfs's metadata and owns the
// on-disk item content directories rooted at <root>/items.
//
// State machine (spec §4.1): absent -> directory created -> connection
// opened -> foreign keys enabled -> migrations applied -> ready. Open
// either returns a Store in the ready state or an error; there is no
// partially-initialized Store visible to callers.
type Store struct {
	db       *sql.DB
	itemsDir string
}

// Open opens or creates the metadata store rooted at dir, creating
// dir/metadata.db and dir/items/ if they don't exist, and running any
// outstanding schema migrations.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	dbPath := filepath.Join(dir, "metadata.db")
	escapedPath := strings.ReplaceAll(dbPath, " ", "%20")
	connStr := "file:" + escapedPath + "?_time_format=sqlite"

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Foreign keys cannot be toggled inside a transaction; set it on the
	// bare connection before anything else runs.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := upgrade(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	itemsDir := filepath.Join(dir, "items")
	if err := os.MkdirAll(itemsDir, 0755); err != nil {
		db.Close()
		return nil, fmt.Errorf("create items directory: %w", err)
	}

	return &Store{db: db, itemsDir: itemsDir}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ItemsDir returns the host directory under which item content directories
// live (<root>/items).
func (s *Store) ItemsDir() string {
	return s.itemsDir
}

func (s *Store) contentPath(id ItemID) string {
	return filepath.Join(s.itemsDir, fmt.Sprintf("%d", int64(id)))
}

// ContentFolderForID returns the absolute, resolved content directory path
// for an item, mirroring the original's content_folder_for_id.
func (s *Store) ContentFolderForID(id ItemID) (string, error) {
	p := s.contentPath(id)
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// withTx runs fn inside a transaction that commits on success and rolls
// back on any non-nil return. Callers compose at the operation level;
// nested transactions are not supported.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return wrapTx("start transaction", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapTx("commit transaction", err)
	}
	return nil
}
