package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/atinyakov/HostsBox/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileRepo(t *testing.T) (*FileEntryRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store", "entries.json")
	return NewFileEntryRepository(path), path
}

func TestFile_EmptyList(t *testing.T) {
	repo, _ := newFileRepo(t)
	entries, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFile_CreateListPersist(t *testing.T) {
	repo, path := newFileRepo(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, models.Entry{Name: "a", Content: "1"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, models.Entry{Name: "b", Content: "2", Active: true})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEmpty(t, a.Rev)
	assert.NotZero(t, a.CreatedAt)

	reopened := NewFileEntryRepository(path)
	entries, err := reopened.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "b", entries[1].Name)
	assert.True(t, entries[1].Active)
}

func TestFile_UpdateRevisions(t *testing.T) {
	repo, _ := newFileRepo(t)
	ctx := context.Background()
	e, err := repo.Create(ctx, models.Entry{Name: "a", Content: "1"})
	require.NoError(t, err)

	e.Content = "2"
	rev, err := repo.Update(ctx, e)
	require.NoError(t, err)
	assert.NotEqual(t, e.Rev, rev)

	// stale revision
	e.Content = "3"
	_, err = repo.Update(ctx, e)
	assert.True(t, errors.Is(err, ErrConflict))

	e.Rev = rev
	_, err = repo.Update(ctx, e)
	require.NoError(t, err)

	entries, _ := repo.ListAll(ctx)
	assert.Equal(t, "3", entries[0].Content)
}

func TestFile_Delete(t *testing.T) {
	repo, _ := newFileRepo(t)
	ctx := context.Background()
	e, err := repo.Create(ctx, models.Entry{Name: "a"})
	require.NoError(t, err)

	assert.True(t, errors.Is(repo.Delete(ctx, e.ID, "stale"), ErrConflict))
	require.NoError(t, repo.Delete(ctx, e.ID, e.Rev))
	assert.True(t, errors.Is(repo.Delete(ctx, e.ID, e.Rev), ErrNotFound))

	entries, _ := repo.ListAll(ctx)
	assert.Empty(t, entries)
}

func TestFile_UpdateUnknown(t *testing.T) {
	repo, _ := newFileRepo(t)
	_, err := repo.Update(context.Background(), models.Entry{ID: "nope", Rev: "r"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFile_CorruptDocument(t *testing.T) {
	repo, path := newFileRepo(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := repo.ListAll(context.Background())
	assert.ErrorContains(t, err, "decode")
}

func TestFile_LockHeldElsewhere(t *testing.T) {
	repo, path := newFileRepo(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	other := NewFileEntryRepository(path)
	ok, err := other.lock.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer other.lock.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = repo.ListAll(ctx)
	assert.Error(t, err)
}
