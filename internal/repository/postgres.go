package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/HostsBox/internal/models"
)

// PostgresEntryRepository stores hosts entries in the hosts_entries table.
// Deletes are soft; tombstones are purged by db.StartTombstoneCleaner.
type PostgresEntryRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresEntryRepository creates a repository over db.
// db must be a valid connection to a PostgreSQL instance with the schema from db.InitPostgres.
func NewPostgresEntryRepository(db *sql.DB) *PostgresEntryRepository {
	return &PostgresEntryRepository{DB: db}
}

// Create inserts a new document and returns it with ID, Rev and CreatedAt set.
//
//	ctx:   context for cancellation and deadlines
//	entry: document to insert; ID and Rev are ignored
func (r *PostgresEntryRepository) Create(ctx context.Context, entry models.Entry) (models.Entry, error) {
	e := prepareCreate(entry)
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO hosts_entries (id, rev, name, content, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, string(e.Rev), e.Name, e.Content, e.Active, e.CreatedAt)
	if err != nil {
		return models.Entry{}, fmt.Errorf("create entry: %w", err)
	}
	return e, nil
}

// Update overwrites name, content and active flag if entry.Rev is still current.
// Returns the new revision, ErrConflict for a stale revision or ErrNotFound.
func (r *PostgresEntryRepository) Update(ctx context.Context, entry models.Entry) (models.Revision, error) {
	rev := NewRevision()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE hosts_entries SET rev = $1, name = $2, content = $3, active = $4
		WHERE id = $5 AND rev = $6 AND deleted = false
	`, string(rev), entry.Name, entry.Content, entry.Active, entry.ID, string(entry.Rev))
	if err != nil {
		return "", fmt.Errorf("update entry: %w", err)
	}
	if err := r.checkAffected(ctx, res, entry.ID); err != nil {
		return "", err
	}
	return rev, nil
}

// Delete marks the document deleted if rev is still current.
func (r *PostgresEntryRepository) Delete(ctx context.Context, id string, rev models.Revision) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE hosts_entries SET deleted = true, deleted_at = $1, rev = $2
		WHERE id = $3 AND rev = $4 AND deleted = false
	`, nowMillis(), string(NewRevision()), id, string(rev))
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return r.checkAffected(ctx, res, id)
}

// ListAll returns every live document in creation order.
func (r *PostgresEntryRepository) ListAll(ctx context.Context) ([]models.Entry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, rev, name, content, active, created_at FROM hosts_entries
		WHERE deleted = false ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		var e models.Entry
		var rev string
		if err := rows.Scan(&e.ID, &rev, &e.Name, &e.Content, &e.Active, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.Rev = models.Revision(rev)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// checkAffected tells a stale revision apart from a missing document when
// a guarded statement touched no rows.
func (r *PostgresEntryRepository) checkAffected(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = r.DB.QueryRowContext(ctx, `
		SELECT rev FROM hosts_entries WHERE id = $1 AND deleted = false
	`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("check revision: %w", err)
	}
	return fmt.Errorf("%w: %s has revision %s", ErrConflict, id, current)
}
