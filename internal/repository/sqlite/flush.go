package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/job-tracker/internal/apperror"
)

// Flush writes the whole in-memory database to the image file.
//
// The image is replaced atomically: the snapshot goes to a uniquely named
// temp file in the same directory, is fsynced, and is renamed over the old
// image. A crash at any point leaves either the previous image or the new
// one, never a partial file.
func (db *DB) Flush(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.flushLocked(ctx)
}

// flushLocked is Flush for callers already holding the exclusive lock.
func (db *DB) flushLocked(ctx context.Context) error {
	start := time.Now()
	dir := filepath.Dir(db.path)
	tmp := filepath.Join(dir, "."+filepath.Base(db.path)+".tmp-"+xid.New().String())

	if err := db.snapshot(ctx, tmp); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil && !os.IsNotExist(rmErr) {
			db.logger.Warn("removing temp image failed",
				slog.String("path", tmp),
				slog.String("error", rmErr.Error()),
			)
		}
		db.logger.Error("flush failed",
			slog.String("path", db.path),
			slog.String("error", err.Error()),
		)
		return apperror.Storage("flushing database", err)
	}

	// The rename is durable only once the directory entry is on disk.
	// Some filesystems refuse to fsync a directory; the image itself is
	// already complete at this point, so that is logged and not failed.
	if err := syncPath(dir); err != nil {
		db.logger.Warn("syncing data directory failed",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
	}

	db.logger.Debug("database flushed",
		slog.String("path", db.path),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

func (db *DB) snapshot(ctx context.Context, tmp string) error {
	// VACUUM INTO writes a compact, self-contained copy of the database.
	if _, err := db.conn.ExecContext(ctx, "VACUUM INTO ?", tmp); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := syncPath(tmp); err != nil {
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := os.Rename(tmp, db.path); err != nil {
		return fmt.Errorf("replacing image: %w", err)
	}
	return nil
}

func syncPath(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
