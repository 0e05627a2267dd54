// Package engine wraps sqlx sqlite database with locking rules and schema setup.
package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver loaded here
)

// SQL is a wrapper for sqlite sqlx.DB
type SQL struct {
	sqlx.DB
}

// New makes a database from the connection url. Supported forms are ":memory:", "file:path",
// "file://path", "sqlite://path" and plain paths ending with .db or .sqlite.
func New(url string) (*SQL, error) {
	if url == "" {
		return nil, fmt.Errorf("connection URL is empty")
	}

	switch {
	case url == ":memory:":
		return NewSqlite(url)
	case strings.HasPrefix(url, "file://"):
		return NewSqlite(strings.TrimPrefix(url, "file://"))
	case strings.HasPrefix(url, "file:"):
		return NewSqlite(strings.TrimPrefix(url, "file:"))
	case strings.HasPrefix(url, "sqlite://"):
		return NewSqlite(strings.TrimPrefix(url, "sqlite://"))
	case strings.HasSuffix(url, ".db"), strings.HasSuffix(url, ".sqlite"):
		return NewSqlite(url)
	}
	return nil, fmt.Errorf("unsupported database type in %q", url)
}

// NewSqlite creates a new sqlite database
func NewSqlite(file string) (*SQL, error) {
	db, err := sqlx.Connect("sqlite", file)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite %s: %w", file, err)
	}
	if file == ":memory:" {
		// each connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := setSqlitePragma(db); err != nil {
		if cerr := db.Close(); cerr != nil {
			log.Printf("[WARN] failed to close sqlite %s: %v", file, cerr)
		}
		return nil, err
	}
	return &SQL{DB: *db}, nil
}

// MakeLock creates a new lock for the database, sqlite allows a single writer
func (e *SQL) MakeLock() *sync.RWMutex {
	return new(sync.RWMutex)
}

func setSqlitePragma(db *sqlx.DB) error {
	pragmas := []struct{ name, value string }{
		{"journal_mode", "WAL"},
		{"busy_timeout", "5000"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec("PRAGMA " + p.name + " = " + p.value); err != nil {
			return fmt.Errorf("failed to set pragma %s: %w", p.name, err)
		}
	}
	return nil
}

// InitDB initializes db table with a schema and handles migration in a transaction
func InitDB(ctx context.Context, db *SQL, tableName, schema string, migrateFn func(context.Context, *sqlx.Tx) error) error {
	if db == nil {
		return fmt.Errorf("db connection is nil")
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.GetContext(ctx, &exists, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", tableName)
	if err != nil {
		return fmt.Errorf("failed to check for %s table existence: %w", tableName, err)
	}

	if exists == 0 {
		// create schema if it doesn't exist, no migration needed
		if _, err = tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	if exists > 0 && migrateFn != nil {
		if err = migrateFn(ctx, tx); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", tableName, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RWLocker is a read-write locker interface, satisfied by sync.RWMutex
type RWLocker interface {
	sync.Locker
	RLock()
	RUnlock()
}
