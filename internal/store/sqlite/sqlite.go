// Package sqlite implements store.Store over database/sql +
// mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hedaas-code/neoagent/internal/obs"
	"github.com/hedaas-code/neoagent/internal/store"
)

var log = obs.For("store.sqlite")

// DB is the concrete store.Store implementation.
type DB struct {
	sql *sql.DB
}

// Open opens (and migrates) the SQLite database at dsn.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1) // sqlite3 driver is not safe for concurrent writers
	if err := ensureSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	log.WithField("dsn", dsn).Info("store opened")
	return &DB{sql: conn}, nil
}

// Close implements store.Store.
func (d *DB) Close() error { return d.sql.Close() }

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Timestamps are stored as nanoseconds so that messages appended within
// the same second still order deterministically.
func unixOf(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func timeOf(u int64) time.Time {
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(0, u).UTC()
}

// withTx runs fn inside a transaction. It backs related-info
// add-or-increment, event creation, event metadata updates and
// environment activation; schedule soft deletes (one row per call, as
// used for conflict dismissal) and archival writes do not use it.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

var _ store.Store = (*DB)(nil)
