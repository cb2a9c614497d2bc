// Package storage opens the local story database, applies schema
// migrations, and bundles the per-collection repositories.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/yorgalore/storysync/internal/client/migrations"
	"github.com/yorgalore/storysync/internal/client/repositories/attachments"
	"github.com/yorgalore/storysync/internal/client/repositories/queue"
	"github.com/yorgalore/storysync/internal/client/repositories/stories"
)

// ErrUnavailable indicates the storage medium could not be opened or
// prepared. Read paths treat it as an empty local cache, never as a
// fatal condition.
var ErrUnavailable = errors.New("local storage unavailable")

// Store owns the database handle and the three collections.
type Store struct {
	DB          *sql.DB
	Stories     stories.Repository
	Queue       queue.Repository
	Attachments attachments.Repository
}

// RunMigrations brings the schema up to the current version. Opening is
// idempotent: missing collections are created, existing data is never
// dropped by an upgrade.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the database at dsn and migrates it.
// Failures wrap ErrUnavailable so callers can degrade to an empty cache.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Store{
		DB:          db,
		Stories:     stories.NewSQLiteRepository(db),
		Queue:       queue.NewSQLiteRepository(db),
		Attachments: attachments.NewSQLiteRepository(db),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.DB.Close()
}
