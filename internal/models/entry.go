// Package models defines the hosts entry document and the error taxonomy
// shared by the store, the writer and the session.
package models

// DefaultName is the name of the base entry every composed hosts file starts with.
const DefaultName = "default"

// Revision is the opaque concurrency token the store hands out on every
// successful mutation. The zero value means the entry was never stored.
type Revision string

// Entry is a named, independently toggleable block of hosts text.
type Entry struct {
	// ID is the store-assigned identifier.
	ID string `json:"id"`
	// Rev must be passed back on the next mutation of this entry.
	Rev Revision `json:"rev"`
	// Name is the logical key; the latest CreatedAt wins among duplicates.
	Name string `json:"name"`
	// Content is raw hosts text.
	Content string `json:"content"`
	// Active marks the entry as part of the composed hosts file.
	Active bool `json:"active"`
	// CreatedAt is the creation time in unix milliseconds.
	CreatedAt int64 `json:"createdAt"`
}

// IsDefault reports whether e is the base layer.
func (e Entry) IsDefault() bool {
	return e.Name == DefaultName
}
