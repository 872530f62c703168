// Package app wires the configured store, hosts file and elevation helper
// into an initialised session.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/atinyakov/HostsBox/internal/compose"
	"github.com/atinyakov/HostsBox/internal/config"
	"github.com/atinyakov/HostsBox/internal/db"
	"github.com/atinyakov/HostsBox/internal/hostsfile"
	"github.com/atinyakov/HostsBox/internal/repository"
	"github.com/atinyakov/HostsBox/internal/service"
	"github.com/atinyakov/HostsBox/internal/session"
	"go.uber.org/zap"
)

const (
	cleanInterval = time.Hour
	tombstoneKeep = 30 * 24 * time.Hour
)

// App owns the session and the resources behind it.
type App struct {
	Session *session.Session
	db      *sql.DB
}

// Build opens the store selected by opts, runs the first-run bootstrap and
// initialises the session. With a DSN the Postgres store is used and its
// tombstones are purged until ctx is done; otherwise the JSON file store.
func Build(ctx context.Context, opts *config.Options, log *zap.Logger) (*App, error) {
	a := &App{}

	var repo service.EntryRepository
	if opts.DatabaseDSN != "" {
		pg, err := db.InitPostgres(opts.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		a.db = pg
		db.StartTombstoneCleaner(ctx, pg, cleanInterval, tombstoneKeep, log)
		repo = repository.NewPostgresEntryRepository(pg)
		log.Info("using postgres store")
	} else {
		path := opts.StoreFile()
		repo = repository.NewFileEntryRepository(path)
		log.Info("using file store", zap.String("path", path))
	}
	store := service.NewEntryStore(repo, log)

	hosts := hostsfile.NewFile(opts.HostsPath)
	if err := service.Bootstrap(ctx, store, hosts, opts.BackupLocation(), log); err != nil {
		a.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	elevator, err := hostsfile.NewShellElevator(opts.ElevatePrefix())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("elevation prefix: %w", err)
	}
	engine := compose.NewEngine(hostsfile.NewWriter(hosts, elevator, log), log)
	opener := hostsfile.NewOpener(hosts, nil, log)

	a.Session = session.New(store, engine, hosts, opener, log)
	if err := a.Session.Init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the database connection, if any.
func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}
