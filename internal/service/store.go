// Package service provides the entry store facade and first-run bootstrap,
// delegating persistence to an EntryRepository.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/HostsBox/internal/compose"
	"github.com/atinyakov/HostsBox/internal/models"
	"github.com/atinyakov/HostsBox/internal/repository"
	"go.uber.org/zap"
)

// EntryRepository defines the document-store operations needed by the EntryStore.
type EntryRepository interface {
	// Create inserts a document and returns it with ID, Rev and CreatedAt assigned.
	Create(ctx context.Context, entry models.Entry) (models.Entry, error)
	// Update stores entry if entry.Rev is current and returns the new revision.
	Update(ctx context.Context, entry models.Entry) (models.Revision, error)
	// Delete removes the document with id if rev is current.
	Delete(ctx context.Context, id string, rev models.Revision) error
	// ListAll returns every stored document in listing order.
	ListAll(ctx context.Context) ([]models.Entry, error)
}

// EntryStore classifies repository errors into models.ErrStorageConflict and
// models.ErrStorageFailure and logs every mutation.
type EntryStore struct {
	// repo is the underlying persistence repository.
	repo EntryRepository
	log  *zap.Logger
}

// NewEntryStore constructs an EntryStore with the provided EntryRepository.
func NewEntryStore(repo EntryRepository, log *zap.Logger) *EntryStore {
	return &EntryStore{repo: repo, log: log}
}

func classify(op string, err error) error {
	if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w: %w", op, models.ErrStorageConflict, err)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStorageFailure, err)
}

// Create stores a new entry.
func (s *EntryStore) Create(ctx context.Context, entry models.Entry) (models.Entry, error) {
	created, err := s.repo.Create(ctx, entry)
	if err != nil {
		s.log.Warn("create entry failed", zap.String("name", entry.Name), zap.Error(err))
		return models.Entry{}, classify("create entry", err)
	}
	s.log.Debug("entry created", zap.String("id", created.ID), zap.String("name", created.Name))
	return created, nil
}

// Update stores entry and returns its new revision.
func (s *EntryStore) Update(ctx context.Context, entry models.Entry) (models.Revision, error) {
	rev, err := s.repo.Update(ctx, entry)
	if err != nil {
		s.log.Warn("update entry failed", zap.String("id", entry.ID), zap.Error(err))
		return "", classify("update entry", err)
	}
	s.log.Debug("entry updated", zap.String("id", entry.ID), zap.Bool("active", entry.Active))
	return rev, nil
}

// Delete removes the entry with id.
func (s *EntryStore) Delete(ctx context.Context, id string, rev models.Revision) error {
	if err := s.repo.Delete(ctx, id, rev); err != nil {
		s.log.Warn("delete entry failed", zap.String("id", id), zap.Error(err))
		return classify("delete entry", err)
	}
	s.log.Debug("entry deleted", zap.String("id", id))
	return nil
}

// ListAll returns the effective entries: one per name, latest CreatedAt wins.
// Shadowed duplicates stay in the store untouched.
func (s *EntryStore) ListAll(ctx context.Context) ([]models.Entry, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, classify("list entries", err)
	}
	effective := compose.Dedupe(all)
	if n := len(all) - len(effective); n > 0 {
		s.log.Info("ignoring duplicate entries", zap.Int("shadowed", n))
	}
	return effective, nil
}
