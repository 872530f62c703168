package service

import (
	"context"

	"github.com/atinyakov/HostsBox/internal/compose"
	"github.com/atinyakov/HostsBox/internal/models"
	"go.uber.org/zap"
)

// HostsSource is the read side of the system hosts file.
type HostsSource interface {
	Read() (string, error)
	Backup(dir string) (path string, skipped bool, err error)
}

// Bootstrap runs the first-run steps: copy the system hosts file to
// backupDir once, then seed an inactive default entry from it if the store
// has none. Failures are logged; only a store listing error is returned.
func Bootstrap(ctx context.Context, store *EntryStore, hosts HostsSource, backupDir string, log *zap.Logger) error {
	if path, skipped, err := hosts.Backup(backupDir); err != nil {
		log.Warn("hosts backup failed", zap.String("path", path), zap.Error(err))
	} else if skipped {
		log.Debug("hosts backup exists, skipping", zap.String("path", path))
	} else {
		log.Info("hosts backed up", zap.String("path", path))
	}

	entries, err := store.ListAll(ctx)
	if err != nil {
		return err
	}
	if _, ok := compose.Default(entries); ok {
		return nil
	}

	content, err := hosts.Read()
	if err != nil {
		log.Warn("cannot seed default entry", zap.Error(err))
		return nil
	}
	if _, err := store.Create(ctx, models.Entry{Name: models.DefaultName, Content: content}); err != nil {
		log.Warn("seeding default entry failed", zap.Error(err))
		return nil
	}
	log.Info("default entry seeded from system hosts")
	return nil
}
