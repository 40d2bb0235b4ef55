package client

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/sketchhub/internal/client/migrations"
	"github.com/dmitrijs2005/sketchhub/internal/client/repositories/session"
	"github.com/dmitrijs2005/sketchhub/internal/client/repositories/snapshots"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	Session   session.Repository
	Snapshots snapshots.Repository
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Session:   session.NewSQLiteRepository(db),
		Snapshots: snapshots.NewSQLiteRepository(db),
	}
}

// RunMigrations applies the embedded cache schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the SQLite cache at dsn and
// migrates it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
