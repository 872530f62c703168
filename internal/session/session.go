// Package session holds the in-memory entry list, the current view and the
// selection set, and sequences store writes and hosts applies with rollback.
package session

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/atinyakov/HostsBox/internal/compose"
	"github.com/atinyakov/HostsBox/internal/models"
	"go.uber.org/zap"
)

// Store is the document store as seen by the session.
type Store interface {
	Create(ctx context.Context, entry models.Entry) (models.Entry, error)
	Update(ctx context.Context, entry models.Entry) (models.Revision, error)
	Delete(ctx context.Context, id string, rev models.Revision) error
	ListAll(ctx context.Context) ([]models.Entry, error)
}

// Applier writes the composition of entries to the system hosts file.
type Applier interface {
	Apply(ctx context.Context, entries []models.Entry) error
}

// HostsReader reads the live system hosts file.
type HostsReader interface {
	Read() (string, error)
}

// DirOpener reveals the hosts file in the OS file browser.
type DirOpener interface {
	Open() error
}

// Mode is the current view.
type Mode int

const (
	ViewingSystem Mode = iota
	ViewingDefault
	EditingDefault
	ViewingEntry
)

func (m Mode) String() string {
	switch m {
	case ViewingSystem:
		return "system"
	case ViewingDefault:
		return "default"
	case EditingDefault:
		return "editing-default"
	case ViewingEntry:
		return "entry"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name produced by MarshalText.
func (m *Mode) UnmarshalText(text []byte) error {
	for _, c := range []Mode{ViewingSystem, ViewingDefault, EditingDefault, ViewingEntry} {
		if c.String() == string(text) {
			*m = c
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", text)
}

// View is what the user currently sees.
type View struct {
	Mode     Mode   `json:"mode"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	ReadOnly bool   `json:"readOnly"`
	EntryID  string `json:"entryId,omitempty"`
}

// Session is the controller behind both the shell and the HTTP API. All
// methods are safe for concurrent use and run one at a time.
type Session struct {
	mu sync.Mutex

	store  Store
	engine Applier
	hosts  HostsReader
	opener DirOpener
	log    *zap.Logger

	entries     []models.Entry
	systemHosts string
	mode        Mode
	entryID     string
	buffer      string
	selected    map[string]struct{}
}

// New constructs a Session. Call Init before use.
func New(store Store, engine Applier, hosts HostsReader, opener DirOpener, log *zap.Logger) *Session {
	return &Session{
		store:    store,
		engine:   engine,
		hosts:    hosts,
		opener:   opener,
		log:      log,
		selected: make(map[string]struct{}),
	}
}

// Init loads the entries and the system hosts text and shows the system view.
// An unreadable hosts file is shown as a comment instead of failing.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	s.entries = entries
	clear(s.selected)

	text, err := s.hosts.Read()
	if err != nil {
		s.log.Warn("read system hosts", zap.Error(err))
		text = fmt.Sprintf("# failed to read system hosts\n# error: %v\n", err)
	}
	s.systemHosts = text
	s.selectSystem()
	s.log.Info("session ready", zap.Int("entries", len(entries)))
	return nil
}

// Entries returns a copy of the effective entry list in listing order.
func (s *Session) Entries() []models.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Entry returns the entry with id.
func (s *Session) Entry(id string) (models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOf(id)
	if err != nil {
		return models.Entry{}, err
	}
	return s.entries[i], nil
}

func (s *Session) indexOf(id string) (int, error) {
	i := slices.IndexFunc(s.entries, func(e models.Entry) bool { return e.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	return i, nil
}

func (s *Session) defaultIndex() int {
	return slices.IndexFunc(s.entries, models.Entry.IsDefault)
}

func (s *Session) apply(ctx context.Context) error {
	return s.engine.Apply(ctx, s.entries)
}

// Preview returns the text an apply would write right now. Without a
// stored default the base is empty.
func (s *Session) Preview() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return compose.Compose(s.entries)
}

// View describes the current view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case ViewingDefault:
		content := s.systemHosts
		if i := s.defaultIndex(); i >= 0 {
			content = s.entries[i].Content
		}
		return View{Mode: s.mode, Title: "Default", Content: content, ReadOnly: true}
	case EditingDefault:
		return View{Mode: s.mode, Title: "Default (editing)", Content: s.buffer}
	case ViewingEntry:
		title := s.entryID
		if i, err := s.indexOf(s.entryID); err == nil {
			title = s.entries[i].Name
		}
		return View{Mode: s.mode, Title: title, Content: s.buffer, EntryID: s.entryID}
	default:
		content := s.systemHosts
		if s.defaultIndex() >= 0 {
			content = compose.Compose(s.entries)
		}
		return View{Mode: ViewingSystem, Title: "System hosts", Content: content, ReadOnly: true}
	}
}

func (s *Session) selectSystem() {
	s.mode = ViewingSystem
	s.entryID = ""
	s.buffer = ""
}

// SelectSystem shows the composed system hosts text. Unsaved edits are dropped.
func (s *Session) SelectSystem() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectSystem()
}

// SelectDefault shows the default entry read-only. Unsaved edits are dropped.
func (s *Session) SelectDefault() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ViewingDefault
	s.entryID = ""
	s.buffer = ""
}

// SelectEntry opens the entry with id for editing. Unsaved edits are dropped.
func (s *Session) SelectEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOf(id)
	if err != nil {
		return err
	}
	e := s.entries[i]
	if e.IsDefault() {
		return fmt.Errorf("%w: use the default view", models.ErrInvalidState)
	}
	s.mode = ViewingEntry
	s.entryID = id
	s.buffer = e.Content
	if s.buffer == "" {
		s.buffer = fmt.Sprintf("# %s\n# edit hosts entries here\n", e.Name)
	}
	return nil
}

// EditDefault switches the default view to editing. The buffer starts from
// the stored default, or from the system hosts text when there is none.
func (s *Session) EditDefault() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ViewingDefault {
		return fmt.Errorf("%w: edit default from the default view", models.ErrInvalidState)
	}
	s.buffer = s.systemHosts
	if i := s.defaultIndex(); i >= 0 {
		s.buffer = s.entries[i].Content
	}
	s.mode = EditingDefault
	return nil
}

// SetBuffer replaces the editable text of the current view.
func (s *Session) SetBuffer(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != EditingDefault && s.mode != ViewingEntry {
		return fmt.Errorf("%w: %s view is read-only", models.ErrInvalidState, s.mode)
	}
	s.buffer = content
	return nil
}

// OpenHostsDir reveals the hosts file in the OS file browser.
func (s *Session) OpenHostsDir() error {
	return s.opener.Open()
}
