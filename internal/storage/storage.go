// Package storage opens the local SQLite replica, applies migrations and
// bundles the repositories working on it.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/flitapp/flitsync/internal/migrations"
	"github.com/flitapp/flitsync/internal/repositories/captures"
	"github.com/flitapp/flitsync/internal/repositories/entities"
	"github.com/flitapp/flitsync/internal/repositories/folders"
	"github.com/flitapp/flitsync/internal/repositories/metadata"
	"github.com/flitapp/flitsync/internal/repositories/notes"
	"github.com/flitapp/flitsync/internal/repositories/schedules"
	"github.com/flitapp/flitsync/internal/repositories/syncqueue"
	"github.com/flitapp/flitsync/internal/repositories/tags"
	"github.com/flitapp/flitsync/internal/repositories/todos"

	_ "modernc.org/sqlite"
)

// Repositories bundles all repositories bound to the shared *sql.DB.
type Repositories struct {
	Captures  captures.Repository
	Todos     todos.Repository
	Schedules schedules.Repository
	Notes     notes.Repository
	Tags      tags.Repository
	Entities  entities.Repository
	Folders   folders.Repository
	SyncQueue syncqueue.Repository
	Metadata  metadata.Repository
}

// NewRepositories binds all repositories to db.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Captures:  captures.NewSQLiteRepository(db),
		Todos:     todos.NewSQLiteRepository(db),
		Schedules: schedules.NewSQLiteRepository(db),
		Notes:     notes.NewSQLiteRepository(db),
		Tags:      tags.NewSQLiteRepository(db),
		Entities:  entities.NewSQLiteRepository(db),
		Folders:   folders.NewSQLiteRepository(db),
		SyncQueue: syncqueue.NewSQLiteRepository(db),
		Metadata:  metadata.NewSQLiteRepository(db),
	}
}

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the SQLite database at dsn, runs migrations and returns
// the handle plus the repository bundle.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, *Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Serialized access keeps write transactions from tripping over
	// SQLITE_BUSY under the drain loop.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return db, NewRepositories(db), nil
}
