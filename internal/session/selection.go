package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/HostsBox/internal/models"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Select adds an entry to the selection set.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOf(id)
	if err != nil {
		return err
	}
	if s.entries[i].IsDefault() {
		return fmt.Errorf("%w: the default entry cannot be selected", models.ErrInvalidState)
	}
	s.selected[id] = struct{}{}
	return nil
}

// Unselect removes id from the selection set.
func (s *Session) Unselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selected, id)
}

// ClearSelection empties the selection set.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.selected)
}

// Selected returns the selected ids in listing order.
func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(s.selectedEntries(), func(e models.Entry, _ int) string { return e.ID })
}

func (s *Session) selectedEntries() []models.Entry {
	return lo.Filter(s.entries, func(e models.Entry, _ int) bool {
		_, ok := s.selected[e.ID]
		return ok
	})
}

func (s *Session) deleteConfirmation() (string, error) {
	sel := s.selectedEntries()
	if len(sel) == 0 {
		return "", models.ErrEmptySelection
	}
	active := lo.CountBy(sel, func(e models.Entry) bool { return e.Active })
	if active == 0 {
		return fmt.Sprintf("Delete %d selected entries?", len(sel)), nil
	}
	return fmt.Sprintf("Delete %d selected entries? %d of them are active and the hosts file will be rewritten.", len(sel), active), nil
}

// DeleteConfirmation returns the question to ask before DeleteSelectedEntries.
func (s *Session) DeleteConfirmation() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteConfirmation()
}

// DeleteSelectedEntries asks confirm and then deletes the selected entries one
// by one. The first failed delete stops the batch; entries already deleted
// stay deleted. If any deleted entry was active the composition is applied
// once at the end.
func (s *Session) DeleteSelectedEntries(ctx context.Context, confirm func(msg string) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.deleteConfirmation()
	if err != nil {
		return err
	}
	if confirm == nil || !confirm(msg) {
		return models.ErrNotConfirmed
	}

	var (
		deleteErr  error
		reapply    bool
		deletedCnt int
	)
	for _, e := range s.selectedEntries() {
		if err := s.store.Delete(ctx, e.ID, e.Rev); err != nil {
			deleteErr = fmt.Errorf("delete %q: %w", e.Name, err)
			break
		}
		s.entries = lo.Reject(s.entries, func(x models.Entry, _ int) bool { return x.ID == e.ID })
		delete(s.selected, e.ID)
		if s.mode == ViewingEntry && s.entryID == e.ID {
			s.selectSystem()
		}
		reapply = reapply || e.Active
		deletedCnt++
	}
	s.log.Info("batch delete", zap.Int("deleted", deletedCnt), zap.Bool("reapply", reapply))

	if reapply {
		if err := s.apply(ctx); err != nil {
			return errors.Join(deleteErr, err)
		}
	}
	if deleteErr != nil {
		return deleteErr
	}
	clear(s.selected)
	return nil
}

// ActivateSelectedEntries marks every selected entry active.
func (s *Session) ActivateSelectedEntries(ctx context.Context) error {
	return s.setSelectedActive(ctx, true)
}

// DeactivateSelectedEntries marks every selected entry inactive.
func (s *Session) DeactivateSelectedEntries(ctx context.Context) error {
	return s.setSelectedActive(ctx, false)
}

// setSelectedActive flips the selected entries that need it in memory,
// applies once, and persists each flag only after the apply succeeded. A
// failed apply restores the previous flags without touching the store.
func (s *Session) setSelectedActive(ctx context.Context, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.selected) == 0 {
		return models.ErrEmptySelection
	}
	var flipped []int
	for i, e := range s.entries {
		if _, ok := s.selected[e.ID]; ok && e.Active != active {
			flipped = append(flipped, i)
		}
	}
	if len(flipped) == 0 {
		return nil
	}

	for _, i := range flipped {
		s.entries[i].Active = active
	}
	if err := s.apply(ctx); err != nil {
		for _, i := range flipped {
			s.entries[i].Active = !active
		}
		if errors.Is(err, models.ErrElevationCancelled) {
			s.log.Info("batch toggle cancelled", zap.Int("entries", len(flipped)))
		}
		return err
	}

	var errs []error
	for _, i := range flipped {
		rev, err := s.store.Update(ctx, s.entries[i])
		if err != nil {
			s.log.Warn("persist active flag", zap.String("id", s.entries[i].ID), zap.Error(err))
			errs = append(errs, fmt.Errorf("persist %q: %w", s.entries[i].Name, err))
			continue
		}
		s.entries[i].Rev = rev
	}
	return errors.Join(errs...)
}
