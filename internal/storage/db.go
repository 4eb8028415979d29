package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"gastos/internal/core"

	_ "modernc.org/sqlite"
)

// DB is an open, migrated handle on the sqlite file.
type DB struct {
	db      *sql.DB
	queries *Queries
	path    string
	version uint
	opener  *Opener
}

// Opener memoizes handles per database file. Concurrent callers that arrive
// before the first open finishes share the same in-flight open, so only one
// upgrade sequence ever runs for a file.
type Opener struct {
	group   singleflight.Group
	mu      sync.Mutex
	handles map[string]*DB
	opened  atomic.Int32
}

func NewOpener() *Opener {
	return &Opener{handles: make(map[string]*DB)}
}

var defaultOpener = NewOpener()

// Open returns the process-wide handle for path, opening and migrating the
// file on first use.
func Open(ctx context.Context, path string) (*DB, error) {
	return defaultOpener.Open(ctx, path)
}

// Open returns the memoized handle for path. A cancelled ctx only abandons
// the wait; the open itself runs to completion for the other callers.
func (o *Opener) Open(ctx context.Context, path string) (*DB, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, &core.StorageUnavailableError{Op: "resolve path", Err: err}
	}
	if h := o.cached(key); h != nil {
		return h, nil
	}

	ch := o.group.DoChan(key, func() (any, error) {
		if h := o.cached(key); h != nil {
			return h, nil
		}
		h, err := o.open(key)
		if err != nil {
			return nil, err
		}
		o.mu.Lock()
		o.handles[key] = h
		o.mu.Unlock()
		return h, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*DB), nil
	}
}

func (o *Opener) cached(key string) *DB {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handles[key]
}

func (o *Opener) open(path string) (*DB, error) {
	o.opened.Add(1)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &core.StorageUnavailableError{Op: "create db directory", Err: err}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, &core.StorageUnavailableError{Op: "open", Err: err}
	}
	// One connection: sqlite has a single writer and this keeps every
	// transaction strictly serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &core.StorageUnavailableError{Op: "ping", Err: err}
	}

	version, err := RunMigrations(path)
	if err != nil {
		db.Close()
		return nil, &core.StorageUnavailableError{Op: "migrate", Err: err}
	}

	slog.Info("Storage opened", "path", path, "schema_version", version)

	return &DB{
		db:      db,
		queries: New(db),
		path:    path,
		version: version,
		opener:  o,
	}, nil
}

// Version is the schema version recorded after the open-time migrations.
func (d *DB) Version() uint {
	return d.version
}

func (d *DB) Path() string {
	return d.path
}

// Close releases the handle and forgets it, so a later Open starts fresh.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	if d.opener != nil {
		d.opener.mu.Lock()
		if d.opener.handles[d.path] == d {
			delete(d.opener.handles, d.path)
		}
		d.opener.mu.Unlock()
	}
	return d.db.Close()
}

// inTx runs fn in one transaction. Writes are not cancellable once started:
// fn receives a ctx detached from the caller's cancellation, so the
// transaction either commits or fails on its own.
func (d *DB) inTx(ctx context.Context, fn func(ctx context.Context, q *Queries) error) error {
	ctx = context.WithoutCancel(ctx)
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(ctx, d.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func dsn(path string) string {
	return path + "?_pragma=busy_timeout(5000)"
}
