// Package stmtcache wraps a *sql.DB so every query runs through a bounded
// cache of prepared statements keyed by SQL text.
package stmtcache

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"dorm.io/dorm/internal/lru"
)

const (
	// DefaultCapacity bounds how many distinct statements stay prepared.
	DefaultCapacity = 256

	defaultTTL = 24 * time.Hour
)

// Stmt is a cache entry. The prepared channel closes once PrepareContext
// returns, so concurrent callers wait for the first prepare instead of
// issuing their own.
type Stmt struct {
	*sql.Stmt
	prepared   chan struct{}
	prepareErr error
}

// Close waits out an in-flight prepare before closing the statement.
func (s *Stmt) Close() error {
	<-s.prepared
	if s.Stmt != nil {
		return s.Stmt.Close()
	}
	return nil
}

// DB decorates a connection pool with statement caching. It satisfies the
// engine's ConnPool interface.
type DB struct {
	conn *sql.DB

	mu    sync.Mutex
	stmts *lru.LRU[string, *Stmt]
}

// New wraps conn. Non-positive capacity or ttl fall back to the defaults.
func New(conn *sql.DB, capacity int, ttl time.Duration) *DB {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	db := &DB{conn: conn}
	db.stmts = lru.New(capacity, ttl, func(_ string, stmt *Stmt) {
		go stmt.Close()
	})
	return db
}

// DB exposes the wrapped connection pool.
func (db *DB) DB() *sql.DB { return db.conn }

// Size reports how many statements are currently cached.
func (db *DB) Size() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.stmts.Len()
}

// Close drops every cached statement and closes the underlying pool.
func (db *DB) Close() error {
	db.mu.Lock()
	db.stmts.Purge()
	db.mu.Unlock()
	return db.conn.Close()
}

// ExecContext runs query through its cached prepared statement.
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	stmt, err := db.stmt(ctx, query)
	if err != nil {
		return nil, err
	}
	return stmt.ExecContext(ctx, args...)
}

// QueryContext runs query through its cached prepared statement.
func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	stmt, err := db.stmt(ctx, query)
	if err != nil {
		return nil, err
	}
	return stmt.QueryContext(ctx, args...)
}

// stmt returns the prepared statement for query, preparing it once. A
// failed prepare is removed from the cache so the next call retries, and
// waiting callers receive the same error.
func (db *DB) stmt(ctx context.Context, query string) (*Stmt, error) {
	db.mu.Lock()
	if cached, ok := db.stmts.Get(query); ok {
		db.mu.Unlock()
		<-cached.prepared
		if cached.prepareErr != nil {
			return nil, cached.prepareErr
		}
		return cached, nil
	}

	stmt := &Stmt{prepared: make(chan struct{})}
	db.stmts.Add(query, stmt)
	db.mu.Unlock()

	var err error
	stmt.Stmt, err = db.conn.PrepareContext(ctx, query)
	if err != nil {
		stmt.prepareErr = err
		db.mu.Lock()
		db.stmts.Remove(query)
		db.mu.Unlock()
	}
	close(stmt.prepared)
	return stmt, err
}
