package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/atinyakov/HostsBox/internal/models"
	"go.uber.org/zap"
)

// upsertDefault stores content as the default entry. It returns the entry as
// it was before, or created=true when the default did not exist.
func (s *Session) upsertDefault(ctx context.Context, content string) (prior models.Entry, created bool, err error) {
	i := s.defaultIndex()
	if i < 0 {
		e, err := s.store.Create(ctx, models.Entry{Name: models.DefaultName, Content: content})
		if err != nil {
			return models.Entry{}, false, err
		}
		s.entries = append(s.entries, e)
		return models.Entry{}, true, nil
	}

	prior = s.entries[i]
	next := prior
	next.Content = content
	rev, err := s.store.Update(ctx, next)
	if err != nil {
		return prior, false, err
	}
	next.Rev = rev
	s.entries[i] = next
	return prior, false, nil
}

// SaveDefault persists the edit buffer as the default entry without applying it.
func (s *Session) SaveDefault(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != EditingDefault {
		return fmt.Errorf("%w: not editing default", models.ErrInvalidState)
	}
	if _, _, err := s.upsertDefault(ctx, s.buffer); err != nil {
		return err
	}
	s.mode = ViewingDefault
	s.buffer = ""
	return nil
}

// SaveDefaultAndApply persists the edit buffer as the default entry and
// applies the composition. An unchanged buffer succeeds without a write. On
// apply failure the stored default is rolled back and editing continues.
func (s *Session) SaveDefaultAndApply(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != EditingDefault {
		return fmt.Errorf("%w: not editing default", models.ErrInvalidState)
	}
	if i := s.defaultIndex(); i >= 0 && s.entries[i].Content == s.buffer {
		s.mode = ViewingDefault
		s.buffer = ""
		return nil
	}

	prior, created, err := s.upsertDefault(ctx, s.buffer)
	if err != nil {
		return err
	}
	if err := s.apply(ctx); err != nil {
		return errors.Join(err, s.rollbackDefault(ctx, prior, created))
	}
	s.mode = ViewingDefault
	s.buffer = ""
	return nil
}

func (s *Session) rollbackDefault(ctx context.Context, prior models.Entry, created bool) error {
	i := s.defaultIndex()
	if i < 0 {
		return nil
	}
	cur := s.entries[i]
	if created {
		if err := s.store.Delete(ctx, cur.ID, cur.Rev); err != nil {
			s.log.Error("rollback default: delete", zap.String("id", cur.ID), zap.Error(err))
			return fmt.Errorf("rollback default: %w", err)
		}
		s.entries = slices.Delete(s.entries, i, i+1)
		return nil
	}

	restored := cur
	restored.Content = prior.Content
	rev, err := s.store.Update(ctx, restored)
	if err != nil {
		s.log.Error("rollback default: update", zap.String("id", cur.ID), zap.Error(err))
		return fmt.Errorf("rollback default: %w", err)
	}
	restored.Rev = rev
	s.entries[i] = restored
	return nil
}

// CreateEntry stores a new inactive entry with placeholder content. Nothing is
// applied since inactive entries are not composed.
func (s *Session) CreateEntry(ctx context.Context, name string) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return models.Entry{}, fmt.Errorf("%w: empty", models.ErrInvalidName)
	case name == models.DefaultName:
		return models.Entry{}, fmt.Errorf("%w: %q is reserved", models.ErrInvalidName, name)
	case slices.ContainsFunc(s.entries, func(e models.Entry) bool { return e.Name == name }):
		return models.Entry{}, fmt.Errorf("%w: %q already exists", models.ErrInvalidName, name)
	}

	e, err := s.store.Create(ctx, models.Entry{
		Name:    name,
		Content: fmt.Sprintf("#--------- %s ---------\n# edit hosts entries here\n", name),
	})
	if err != nil {
		return models.Entry{}, err
	}
	s.entries = append(s.entries, e)
	return e, nil
}

// SaveCurrentEntry persists the buffer of the entry being viewed. An active
// entry is reapplied, and its stored content rolled back if that fails.
func (s *Session) SaveCurrentEntry(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ViewingEntry {
		return fmt.Errorf("%w: no entry selected", models.ErrInvalidState)
	}
	i, err := s.indexOf(s.entryID)
	if err != nil {
		return err
	}

	prior := s.entries[i]
	next := prior
	next.Content = s.buffer
	rev, err := s.store.Update(ctx, next)
	if err != nil {
		return err
	}
	next.Rev = rev
	s.entries[i] = next

	if !next.Active || next.Content == prior.Content {
		return nil
	}
	if err := s.apply(ctx); err != nil {
		restored := next
		restored.Content = prior.Content
		rev, rerr := s.store.Update(ctx, restored)
		if rerr != nil {
			s.log.Error("rollback entry content", zap.String("id", next.ID), zap.Error(rerr))
			return errors.Join(err, fmt.Errorf("rollback entry: %w", rerr))
		}
		restored.Rev = rev
		s.entries[i] = restored
		return err
	}
	return nil
}

// ToggleEntryActive sets the active flag of an entry and applies the result.
// The flag is persisted only after the hosts file was written; a failed apply
// reverts the in-memory flag and leaves the store untouched. If persisting
// fails afterwards, the previous composition is applied again.
func (s *Session) ToggleEntryActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexOf(id)
	if err != nil {
		return err
	}
	if s.entries[i].IsDefault() {
		return fmt.Errorf("%w: the default entry is always applied", models.ErrInvalidState)
	}
	if s.entries[i].Active == active {
		return nil
	}

	s.entries[i].Active = active
	if err := s.apply(ctx); err != nil {
		s.entries[i].Active = !active
		if errors.Is(err, models.ErrElevationCancelled) {
			s.log.Info("toggle cancelled", zap.String("id", id))
		}
		return err
	}

	rev, err := s.store.Update(ctx, s.entries[i])
	if err != nil {
		s.entries[i].Active = !active
		if aerr := s.apply(ctx); aerr != nil {
			s.log.Error("reapply after failed toggle persist", zap.String("id", id), zap.Error(aerr))
			return errors.Join(err, aerr)
		}
		return err
	}
	s.entries[i].Rev = rev
	return nil
}

// DeleteEntry removes an entry. Deleting an active entry reapplies the
// composition; if that fails the document is recreated in its old position.
func (s *Session) DeleteEntry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexOf(id)
	if err != nil {
		return err
	}
	removed := s.entries[i]
	if removed.IsDefault() {
		return fmt.Errorf("%w: the default entry cannot be deleted", models.ErrInvalidState)
	}
	if err := s.store.Delete(ctx, removed.ID, removed.Rev); err != nil {
		return err
	}
	s.entries = slices.Delete(s.entries, i, i+1)

	if removed.Active {
		if err := s.apply(ctx); err != nil {
			return errors.Join(err, s.restore(ctx, i, removed))
		}
	}

	delete(s.selected, id)
	if s.mode == ViewingEntry && s.entryID == id {
		s.selectSystem()
	}
	return nil
}

// restore recreates a deleted document at index i. The store assigns a new
// id; selection and the current view follow it.
func (s *Session) restore(ctx context.Context, i int, removed models.Entry) error {
	e, err := s.store.Create(ctx, removed)
	if err != nil {
		s.log.Error("restore deleted entry", zap.String("name", removed.Name), zap.Error(err))
		delete(s.selected, removed.ID)
		if s.mode == ViewingEntry && s.entryID == removed.ID {
			s.selectSystem()
		}
		return fmt.Errorf("restore %q: %w", removed.Name, err)
	}
	s.entries = slices.Insert(s.entries, i, e)
	if _, ok := s.selected[removed.ID]; ok {
		delete(s.selected, removed.ID)
		s.selected[e.ID] = struct{}{}
	}
	if s.mode == ViewingEntry && s.entryID == removed.ID {
		s.entryID = e.ID
	}
	s.log.Info("deleted entry restored", zap.String("name", e.Name), zap.String("id", e.ID))
	return nil
}
