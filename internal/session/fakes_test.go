package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/atinyakov/HostsBox/internal/compose"
	"github.com/atinyakov/HostsBox/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore is an in-memory Store that records every call.
type memStore struct {
	docs    []models.Entry
	seq     int
	calls   []string
	failOn  map[string]error
	created []models.Entry
}

func (m *memStore) next() string {
	m.seq++
	return fmt.Sprint(m.seq)
}

func (m *memStore) fail(op string) error {
	m.calls = append(m.calls, op)
	return m.failOn[op]
}

func (m *memStore) Create(_ context.Context, e models.Entry) (models.Entry, error) {
	if err := m.fail("create"); err != nil {
		return models.Entry{}, err
	}
	m.created = append(m.created, e)
	e.ID = "id" + m.next()
	e.Rev = models.Revision("r" + m.next())
	if e.CreatedAt == 0 {
		e.CreatedAt = int64(m.seq)
	}
	m.docs = append(m.docs, e)
	return e, nil
}

func (m *memStore) Update(_ context.Context, e models.Entry) (models.Revision, error) {
	if err := m.fail("update"); err != nil {
		return "", err
	}
	i := slices.IndexFunc(m.docs, func(d models.Entry) bool { return d.ID == e.ID })
	if i < 0 {
		return "", models.ErrStorageConflict
	}
	if m.docs[i].Rev != e.Rev {
		return "", fmt.Errorf("%w: stale rev %s", models.ErrStorageConflict, e.Rev)
	}
	e.Rev = models.Revision("r" + m.next())
	m.docs[i] = e
	return e.Rev, nil
}

func (m *memStore) Delete(_ context.Context, id string, rev models.Revision) error {
	if err := m.fail("delete:" + id); err != nil {
		return err
	}
	i := slices.IndexFunc(m.docs, func(d models.Entry) bool { return d.ID == id })
	if i < 0 || m.docs[i].Rev != rev {
		return models.ErrStorageConflict
	}
	m.docs = slices.Delete(m.docs, i, i+1)
	return nil
}

func (m *memStore) ListAll(context.Context) ([]models.Entry, error) {
	if err := m.fail("list"); err != nil {
		return nil, err
	}
	return slices.Clone(m.docs), nil
}

func (m *memStore) count(op string) int {
	n := 0
	for _, c := range m.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (m *memStore) doc(name string) (models.Entry, bool) {
	i := slices.IndexFunc(m.docs, func(d models.Entry) bool { return d.Name == name })
	if i < 0 {
		return models.Entry{}, false
	}
	return m.docs[i], true
}

// fakeApplier records the composed text of every apply and returns the
// queued errors in order.
type fakeApplier struct {
	written []string
	errs    []error
}

func (f *fakeApplier) Apply(_ context.Context, entries []models.Entry) error {
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	if err == nil {
		f.written = append(f.written, compose.Compose(entries))
	}
	return err
}

type fakeHosts struct {
	text string
	err  error
}

func (f fakeHosts) Read() (string, error) { return f.text, f.err }

type fakeOpener struct {
	opened int
	err    error
}

func (f *fakeOpener) Open() error {
	f.opened++
	return f.err
}

var (
	errCancelled = fmt.Errorf("%w: user declined", models.ErrElevationCancelled)
	errFailed    = fmt.Errorf("%w: boom", models.ErrElevationFailed)
	errDisk      = errors.New("disk full")
)

type fixture struct {
	s      *Session
	store  *memStore
	engine *fakeApplier
	opener *fakeOpener
}

const systemText = "127.0.0.1 localhost\n"

// newFixture seeds the store with docs and initialises a session over it.
func newFixture(t *testing.T, docs ...models.Entry) *fixture {
	t.Helper()
	store := &memStore{failOn: map[string]error{}}
	for _, d := range docs {
		_, err := store.Create(context.Background(), d)
		require.NoError(t, err)
	}
	store.calls = nil
	store.created = nil

	f := &fixture{store: store, engine: &fakeApplier{}, opener: &fakeOpener{}}
	f.s = New(store, f.engine, fakeHosts{text: systemText}, f.opener, zap.NewNop())
	require.NoError(t, f.s.Init(context.Background()))
	store.calls = nil
	return f
}

func (f *fixture) id(t *testing.T, name string) string {
	t.Helper()
	for _, e := range f.s.Entries() {
		if e.Name == name {
			return e.ID
		}
	}
	t.Fatalf("no entry %q", name)
	return ""
}

func (f *fixture) entry(t *testing.T, name string) models.Entry {
	t.Helper()
	e, err := f.s.Entry(f.id(t, name))
	require.NoError(t, err)
	return e
}
