package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/atinyakov/HostsBox/internal/models"
	"github.com/gofrs/flock"
	atomicfile "github.com/natefinch/atomic"
)

const lockRetry = 20 * time.Millisecond

// fileDocument is the on-disk layout of the JSON store.
type fileDocument struct {
	Entries []models.Entry `json:"entries"`
}

// FileEntryRepository keeps all entries in one JSON file. Every operation
// re-reads the file under an exclusive lock so several processes can share it.
type FileEntryRepository struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// NewFileEntryRepository returns a store backed by path; the file is created
// on the first write. A sibling "<path>.lock" file guards access.
func NewFileEntryRepository(path string) *FileEntryRepository {
	return &FileEntryRepository{path: path, lock: flock.New(path + ".lock")}
}

func (r *FileEntryRepository) load() (fileDocument, error) {
	var doc fileDocument
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return doc, err
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return doc, nil
}

func (r *FileEntryRepository) save(doc fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(r.path, bytes.NewReader(data))
}

// update runs fn on the current document under the lock and saves the
// document when fn reports a change.
func (r *FileEntryRepository) update(ctx context.Context, fn func(doc *fileDocument) (bool, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("store dir: %w", err)
	}
	ok, err := r.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("lock store: %w", err)
	}
	if !ok {
		return fmt.Errorf("lock store: %s is busy", r.path)
	}
	defer r.lock.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}
	dirty, err := fn(&doc)
	if err != nil || !dirty {
		return err
	}
	return r.save(doc)
}

func indexOf(doc *fileDocument, id string) int {
	for i, e := range doc.Entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Create appends a new document.
func (r *FileEntryRepository) Create(ctx context.Context, entry models.Entry) (models.Entry, error) {
	e := prepareCreate(entry)
	err := r.update(ctx, func(doc *fileDocument) (bool, error) {
		doc.Entries = append(doc.Entries, e)
		return true, nil
	})
	if err != nil {
		return models.Entry{}, err
	}
	return e, nil
}

// Update replaces name, content and active flag if entry.Rev is current.
func (r *FileEntryRepository) Update(ctx context.Context, entry models.Entry) (models.Revision, error) {
	rev := NewRevision()
	err := r.update(ctx, func(doc *fileDocument) (bool, error) {
		i := indexOf(doc, entry.ID)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", ErrNotFound, entry.ID)
		}
		cur := &doc.Entries[i]
		if cur.Rev != entry.Rev {
			return false, fmt.Errorf("%w: %s has revision %s", ErrConflict, entry.ID, cur.Rev)
		}
		cur.Name = entry.Name
		cur.Content = entry.Content
		cur.Active = entry.Active
		cur.Rev = rev
		return true, nil
	})
	if err != nil {
		return "", err
	}
	return rev, nil
}

// Delete removes the document if rev is current.
func (r *FileEntryRepository) Delete(ctx context.Context, id string, rev models.Revision) error {
	return r.update(ctx, func(doc *fileDocument) (bool, error) {
		i := indexOf(doc, id)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if doc.Entries[i].Rev != rev {
			return false, fmt.Errorf("%w: %s has revision %s", ErrConflict, id, doc.Entries[i].Rev)
		}
		doc.Entries = append(doc.Entries[:i], doc.Entries[i+1:]...)
		return true, nil
	})
}

// ListAll returns every document in insertion order.
func (r *FileEntryRepository) ListAll(ctx context.Context) ([]models.Entry, error) {
	var out []models.Entry
	err := r.update(ctx, func(doc *fileDocument) (bool, error) {
		out = doc.Entries
		return false, nil
	})
	return out, err
}
