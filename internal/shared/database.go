package shared

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

// NewDatabase opens a SQLite database at the specified path. The path can be
// ":memory:" for an in-memory database.
//
// Foreign key enforcement is switched on for every connection: token sets and
// sessions reference identities and must not outlive them. A busy timeout
// keeps the shuffle goroutines and the request handlers from tripping over
// each other on SQLITE_BUSY.
func NewDatabase(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", url.PathEscape(path))
	if path == ":memory:" {
		// Shared cache so every pooled connection sees the same in-memory
		// database.
		dsn = "file::memory:?cache=shared&_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ConfigureDatabase sets connection pool limits. Zero or negative values fall
// back to a small pool suited to a single-user web process.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	if maxOpenConns <= 0 {
		maxOpenConns = 4
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 2
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
}
