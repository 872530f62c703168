// Package repository provides document-store implementations for hosts
// entries: a PostgreSQL table and a local JSON file.
package repository

import (
	"errors"
	"time"

	"github.com/atinyakov/HostsBox/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrConflict is returned when the caller's revision is stale.
	ErrConflict = errors.New("revision conflict")
	// ErrNotFound is returned for an unknown or deleted id.
	ErrNotFound = errors.New("document not found")
)

// NewRevision returns a fresh opaque revision token.
func NewRevision() models.Revision {
	return models.Revision(uuid.NewString())
}

// nowMillis is replaced in tests.
var nowMillis = func() int64 {
	return time.Now().UnixMilli()
}

// prepareCreate fills the store-owned fields of a new document. A caller
// supplied CreatedAt is kept so restored documents keep their position.
func prepareCreate(e models.Entry) models.Entry {
	e.ID = uuid.NewString()
	e.Rev = NewRevision()
	if e.CreatedAt == 0 {
		e.CreatedAt = nowMillis()
	}
	return e
}
