package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/HostsBox/internal/models"
)

func setupMock(t *testing.T) (*PostgresEntryRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresEntryRepository(db)
	cleanup := func() {
		db.Close()
	}
	return repo, mock, cleanup
}

func fixedClock(t *testing.T, ms int64) {
	old := nowMillis
	nowMillis = func() int64 { return ms }
	t.Cleanup(func() { nowMillis = old })
}

func TestCreate_Success(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()
	fixedClock(t, 1700)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO hosts_entries (id, rev, name, content, active, created_at)`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "dev", "1.2.3.4 dev.local", false, int64(1700)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	e, err := repo.Create(context.Background(), models.Entry{Name: "dev", Content: "1.2.3.4 dev.local"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID == "" || e.Rev == "" {
		t.Errorf("expected id and rev to be assigned, got %+v", e)
	}
	if e.CreatedAt != 1700 {
		t.Errorf("expected createdAt 1700, got %d", e.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreate_KeepsCreatedAt(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO hosts_entries`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "old", "", true, int64(42)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	e, err := repo.Create(context.Background(), models.Entry{Name: "old", Active: true, CreatedAt: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.CreatedAt != 42 {
		t.Errorf("expected createdAt 42, got %d", e.CreatedAt)
	}
}

func TestCreate_Error(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO hosts_entries`)).
		WillReturnError(errors.New("disk full"))

	_, err := repo.Create(context.Background(), models.Entry{Name: "x"})
	if err == nil || !regexp.MustCompile(`create entry: disk full`).MatchString(err.Error()) {
		t.Errorf("expected create entry error, got %v", err)
	}
}

func TestUpdate_Success(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE hosts_entries SET rev = $1, name = $2, content = $3, active = $4`)).
		WithArgs(sqlmock.AnyArg(), "dev", "c", true, "id1", "rev1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rev, err := repo.Update(context.Background(), models.Entry{ID: "id1", Rev: "rev1", Name: "dev", Content: "c", Active: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rev == "" || rev == "rev1" {
		t.Errorf("expected a fresh revision, got %q", rev)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpdate_Conflict(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE hosts_entries SET rev = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT rev FROM hosts_entries WHERE id = $1 AND deleted = false`)).
		WithArgs("id1").
		WillReturnRows(sqlmock.NewRows([]string{"rev"}).AddRow("rev2"))

	_, err := repo.Update(context.Background(), models.Entry{ID: "id1", Rev: "rev1"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE hosts_entries SET rev = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT rev FROM hosts_entries`)).
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), models.Entry{ID: "gone", Rev: "r"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()
	fixedClock(t, 99)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE hosts_entries SET deleted = true, deleted_at = $1, rev = $2`)).
		WithArgs(int64(99), sqlmock.AnyArg(), "id1", "rev1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "id1", "rev1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDelete_Conflict(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE hosts_entries SET deleted = true`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT rev FROM hosts_entries`)).
		WithArgs("id1").
		WillReturnRows(sqlmock.NewRows([]string{"rev"}).AddRow("newer"))

	if err := repo.Delete(context.Background(), "id1", "stale"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestListAll_Success(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "rev", "name", "content", "active", "created_at"}).
		AddRow("1", "r1", "default", "127.0.0.1 localhost", false, int64(1)).
		AddRow("2", "r2", "dev", "1.2.3.4 dev", true, int64(2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, rev, name, content, active, created_at FROM hosts_entries`)).
		WillReturnRows(rows)

	entries, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].Name != "dev" || !entries[1].Active || entries[1].Rev != "r2" {
		t.Errorf("unexpected entry: %+v", entries[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestListAll_Error(t *testing.T) {
	repo, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, rev, name`)).
		WillReturnError(errors.New("conn reset"))

	_, err := repo.ListAll(context.Background())
	if err == nil || !regexp.MustCompile(`list entries`).MatchString(err.Error()) {
		t.Errorf("expected list entries error, got %v", err)
	}
}
