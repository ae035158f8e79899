// Package cli is the interactive beamlink client: a REPL over the handshake
// machine, the exchange runner and the local record store.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"

	"github.com/okatenko/beamlink/internal/app/config"
	"github.com/okatenko/beamlink/internal/common"
	"github.com/okatenko/beamlink/internal/cryptox"
	"github.com/okatenko/beamlink/internal/handshake"
	"github.com/okatenko/beamlink/internal/logging"
	"github.com/okatenko/beamlink/internal/models"
	"github.com/okatenko/beamlink/internal/relay"
	"github.com/okatenko/beamlink/internal/store"
	"github.com/okatenko/beamlink/internal/transport"
	"github.com/okatenko/beamlink/internal/transport/grpctransport"

	_ "modernc.org/sqlite"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	repos   *store.Repositories
	machine *handshake.Machine
	engine  *relay.Engine

	profile *models.Profile
	keys    *cryptox.KeyPair

	reader *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	repos, db, err := store.InitDatabase(ctx, c.DBPath)
	if err != nil {
		logger.Error(ctx, "database init failed", "path", c.DBPath, "error", err)
		return nil, err
	}

	a := &App{
		config: c,
		logger: logger,
		db:     db,
		repos:  repos,
		reader: bufio.NewReader(os.Stdin),
	}
	a.machine = handshake.NewMachine(func() transport.Session {
		return grpctransport.NewSession(c.BindHost, logger)
	}, logger)

	if err := a.loadProfile(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

// loadProfile pulls the local profile and decodes its key material. A missing
// profile is fine, the REPL then only offers setup.
func (a *App) loadProfile(ctx context.Context) error {
	p, err := a.repos.Profiles.Get(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	keys, err := p.Identity.Keys()
	if err != nil {
		return err
	}
	a.profile = p
	a.keys = keys
	a.engine = relay.NewEngine(p, a.repos.Connections, a.repos.Messages,
		a.repos.Relays, a.logger, a.config.RelayTTL)
	return nil
}

func (a *App) hasProfile() bool {
	return a.profile != nil
}

func (a *App) Run(ctx context.Context) {
	if a.engine != nil {
		go a.engine.RunPeriodic(ctx, a.config.CleanupInterval)
	}
	a.Root(ctx)
	a.machine.Reset()
	_ = a.db.Close()
}
