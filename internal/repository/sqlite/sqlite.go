// Package sqlite implements the repository interfaces on an in-memory SQLite
// database that is mirrored to a single image file on disk.
//
// STORAGE MODEL:
// The live database never touches disk directly. On startup New loads the
// image file (if any) into memory; every committed mutation is followed by a
// synchronous Flush that writes the whole database to a temp file and renames
// it over the image. There is no WAL and no journal on disk: the image file is
// the only durable artifact and "last flush wins".
//
// CONCURRENCY:
// The in-memory database lives on exactly one pinned connection. An RWMutex
// guards it together with the image file:
//   - reads (Query, Get, View) take the shared lock
//   - writes (Execute, Mutate) take the exclusive lock for the transaction AND
//     the flush, so two mutations never interleave and no read observes a
//     flush in progress
//
// Every statement is built with squirrel or a fixed template; values are always
// bound as parameters, never spliced into SQL text.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	// registers the pure-Go "sqlite" driver with database/sql
	_ "modernc.org/sqlite"

	"github.com/sakif/job-tracker/internal/apperror"
)

// dsn opens a private in-memory database. Foreign keys are off by default in
// SQLite and ON DELETE CASCADE needs them; the time format keeps DATETIME
// columns in a sortable ISO layout.
const dsn = ":memory:?_pragma=foreign_keys(1)&_time_format=sqlite"

// schema is applied to the in-memory database on every start. The disk
// image is always produced by VACUUM INTO from this same schema, so the
// column order of main.* and disk.* tables matches when loading.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT NOT NULL,
		created_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id      INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		company      TEXT NOT NULL,
		position     TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'applied'
		             CHECK(status IN ('wishlist','applied','phone_screen','interview','offer','rejected','withdrawn','accepted')),
		job_type     TEXT NOT NULL DEFAULT 'full-time'
		             CHECK(job_type IN ('full-time','part-time','contract','internship','freelance')),
		location     TEXT,
		salary_min   INTEGER CHECK(salary_min IS NULL OR salary_min >= 0),
		salary_max   INTEGER CHECK(salary_max IS NULL OR salary_max >= 0),
		url          TEXT,
		notes        TEXT,
		applied_date TEXT,
		deadline     TEXT,
		created_at   DATETIME NOT NULL,
		updated_at   DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_user_id ON jobs(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_user_created ON jobs(user_id, created_at)`,
}

// DB is the persistence engine. It owns the in-memory database and the image
// file at path; nothing else may write either.
type DB struct {
	conn   *sqlx.DB
	path   string
	logger *slog.Logger

	mu sync.RWMutex
}

// New opens the in-memory database, creates the schema, loads the image file
// at path when it exists and writes a fresh image so the file is present from
// the first run on.
//
// An unreadable or corrupt image is returned as an apperror.ErrStorage error;
// the caller is expected to treat it as fatal.
func New(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	db, err := newDB(conn, path, logger)
	if err != nil {
		return nil, err
	}

	if err := db.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// newDB wraps an already opened handle. Tests use it to inject sqlmock.
func newDB(conn *sqlx.DB, path string, logger *slog.Logger) (*DB, error) {
	if path == "" {
		conn.Close()
		return nil, errors.New("sqlite: database image path is required")
	}

	// An in-memory database exists per connection. Pin the pool to a single
	// connection that is never closed for idleness, otherwise the data would
	// silently disappear with a recycled connection.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(0)

	return &DB{conn: conn, path: path, logger: logger}, nil
}

func (db *DB) init(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: pinging database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: creating schema: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(db.path), 0o755); err != nil {
		return apperror.Storage("creating data directory", err)
	}

	loaded, err := db.load(ctx)
	if err != nil {
		return apperror.Storage("loading "+db.path, err)
	}
	db.logger.Info("database ready",
		slog.String("path", db.path),
		slog.Bool("loaded", loaded),
	)

	return db.Flush(ctx)
}

// load copies the image file into the in-memory database. It reports false
// when there is no image yet.
func (db *DB) load(ctx context.Context) (bool, error) {
	if _, err := os.Stat(db.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	// ATTACH takes an expression, so the path is bound like any value.
	if _, err := db.conn.ExecContext(ctx, "ATTACH DATABASE ? AS disk", db.path); err != nil {
		return false, fmt.Errorf("attaching image: %w", err)
	}
	defer func() {
		if _, err := db.conn.ExecContext(context.WithoutCancel(ctx), "DETACH DATABASE disk"); err != nil {
			db.logger.Warn("detaching image failed", slog.String("error", err.Error()))
		}
	}()

	// ATTACH is lazy; quick_check forces SQLite to read and verify the file.
	var check string
	if err := db.conn.GetContext(ctx, &check, "PRAGMA disk.quick_check"); err != nil {
		return false, fmt.Errorf("checking image: %w", err)
	}
	if check != "ok" {
		return false, fmt.Errorf("image failed integrity check: %s", check)
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning load: %w", err)
	}
	defer tx.Rollback()

	copies := []string{
		`INSERT INTO main.users (id, username, email, password_hash, created_at)
		 SELECT id, username, email, password_hash, created_at FROM disk.users`,
		`INSERT INTO main.jobs (id, user_id, company, position, status, job_type, location,
		                        salary_min, salary_max, url, notes, applied_date, deadline,
		                        created_at, updated_at)
		 SELECT id, user_id, company, position, status, job_type, location,
		        salary_min, salary_max, url, notes, applied_date, deadline,
		        created_at, updated_at FROM disk.jobs`,
	}
	for _, stmt := range copies {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return false, fmt.Errorf("copying image: %w", err)
		}
	}

	// AUTOINCREMENT counters live in sqlite_sequence. Restoring them keeps ids
	// of deleted rows from being handed out again after a restart.
	var hasSeq int
	if err := tx.GetContext(ctx, &hasSeq,
		`SELECT COUNT(*) FROM disk.sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'`,
	); err != nil {
		return false, fmt.Errorf("inspecting image: %w", err)
	}
	if hasSeq > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM main.sqlite_sequence`); err != nil {
			return false, fmt.Errorf("resetting sequences: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO main.sqlite_sequence (name, seq) SELECT name, seq FROM disk.sqlite_sequence`,
		); err != nil {
			return false, fmt.Errorf("copying sequences: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing load: %w", err)
	}
	return true, nil
}

// Close releases the in-memory database. Everything committed has already
// been flushed, so there is nothing to write here.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the location of the image file.
func (db *DB) Path() string { return db.path }

// Query runs a read and scans every row into dest, which must be a pointer to
// a slice. No matching rows leaves dest empty and is not an error.
func (db *DB) Query(ctx context.Context, dest any, q squirrel.Sqlizer) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return selectx(ctx, db.conn, dest, q)
}

// Get runs a read expected to return one row. It returns an error wrapping
// sql.ErrNoRows when nothing matches.
func (db *DB) Get(ctx context.Context, dest any, q squirrel.Sqlizer) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return getx(ctx, db.conn, dest, q)
}

// View runs several reads under one shared lock so they observe the same
// committed state, e.g. a page of rows and its total count.
func (db *DB) View(ctx context.Context, fn func(q sqlx.QueryerContext) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(db.conn)
}

// Execute runs a single write and returns the number of affected rows. The
// image is flushed before it returns.
func (db *DB) Execute(ctx context.Context, q squirrel.Sqlizer) (int64, error) {
	var affected int64
	err := db.Mutate(ctx, func(tx *sqlx.Tx) error {
		n, err := execx(ctx, tx, q)
		affected = n
		return err
	})
	return affected, err
}

// Mutate runs fn in a transaction while holding the exclusive lock, commits,
// and flushes the image. If fn fails the transaction is rolled back and
// nothing is flushed.
//
// fn must use tx for every statement: the pool has a single connection and
// tx already holds it.
//
// A flush failure is returned as apperror.ErrStorage. The committed change
// stays in memory; memory and disk disagree until the next successful flush
// or a restart, which reloads the last good image.
func (db *DB) Mutate(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", translate(err))
	}

	// The mutation is committed; a cancelled request must not abort its flush.
	return db.flushLocked(context.WithoutCancel(ctx))
}

func selectx(ctx context.Context, q sqlx.QueryerContext, dest any, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building query: %w", err)
	}
	if err := sqlx.SelectContext(ctx, q, dest, query, args...); err != nil {
		return fmt.Errorf("sqlite: querying: %w", err)
	}
	return nil
}

func getx(ctx context.Context, q sqlx.QueryerContext, dest any, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building query: %w", err)
	}
	if err := sqlx.GetContext(ctx, q, dest, query, args...); err != nil {
		return fmt.Errorf("sqlite: querying: %w", err)
	}
	return nil
}

// execx runs a write and returns the affected row count. Constraint errors
// come back as *ConstraintViolation.
func execx(ctx context.Context, e sqlx.ExecerContext, b squirrel.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("sqlite: building statement: %w", err)
	}
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

// insertx runs an INSERT and returns the new row id.
func insertx(ctx context.Context, e sqlx.ExecerContext, b squirrel.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("sqlite: building statement: %w", err)
	}
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading insert id: %w", err)
	}
	return id, nil
}

// isNoRows reports whether err means "no matching row".
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
