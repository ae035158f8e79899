// Package store bootstraps the device-local sqlite record store and bundles
// the per-entity repositories.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/okatenko/beamlink/internal/store/connections"
	"github.com/okatenko/beamlink/internal/store/messages"
	"github.com/okatenko/beamlink/internal/store/migrations"
	"github.com/okatenko/beamlink/internal/store/profiles"
	"github.com/okatenko/beamlink/internal/store/relays"
	"github.com/pressly/goose/v3"
)

type Repositories struct {
	Profiles    profiles.Repository
	Connections connections.Repository
	Messages    messages.Repository
	Relays      relays.Repository
}

// RunMigrations applies all embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (or creates) the sqlite database at dsn, migrates it
// and returns the repository set plus the raw handle for transaction use.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, *sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	repos := &Repositories{
		Profiles:    profiles.NewSQLiteRepository(db),
		Connections: connections.NewSQLiteRepository(db),
		Messages:    messages.NewSQLiteRepository(db),
		Relays:      relays.NewSQLiteRepository(db),
	}
	return repos, db, nil
}
