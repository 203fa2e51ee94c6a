package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asamblea/internal/registry/models"
	"asamblea/pkg/platform/sentinel"
)

var recordColumns = []string{
	"id", "owner_document", "group_label", "property_label", "coefficient", "votes",
	"registered_in_assembly", "is_deleted", "vote_blocked", "registration",
}

func newMockStore(t *testing.T) (*PostgresRegistryStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestPostgresListByOwnerUsesNormalizedDocument(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .* FROM registry_properties\\s+WHERE list_id = \\$1 AND owner_document_norm = \\$2").
		WithArgs("list-1", "ab-12").
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow("apt-101", "AB-12", "Tower A", "101", 10.0, 1.0, false, false, false, nil))

	reg, err := store.ListByOwner(context.Background(), "list-1", "  AB-12 ")
	require.NoError(t, err)
	require.Len(t, reg, 1)
	assert.Equal(t, 10.0, reg["apt-101"].Coefficient)
	assert.Nil(t, reg["apt-101"].Registration)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateWritesOnlyPatchedColumns(t *testing.T) {
	store, mock := newMockStore(t)
	blocked := true

	mock.ExpectQuery("UPDATE registry_properties SET vote_blocked = \\$3\\s+WHERE list_id = \\$1 AND id = \\$2").
		WithArgs("list-1", "apt-101", true).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow("apt-101", "AB-12", "Tower A", "101", 10.0, 1.0, false, false, true, nil))

	rec, err := store.Update(context.Background(), "list-1", "apt-101", models.Patch{VoteBlocked: &blocked})
	require.NoError(t, err)
	assert.True(t, rec.VoteBlocked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateStampsRegistration(t *testing.T) {
	store, mock := newMockStore(t)
	stamp := `{"document":"AB-12","role":"owner","attendee_id":"att-1","registered_at":"2026-01-01T00:00:00Z"}`

	mock.ExpectQuery("UPDATE registry_properties SET registered_in_assembly = \\$3, registration = \\$4").
		WithArgs("list-1", "apt-101", true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow("apt-101", "AB-12", "Tower A", "101", 10.0, 1.0, true, false, false, []byte(stamp)))

	rec, err := store.Update(context.Background(), "list-1", "apt-101", models.StampPatch(models.RegistrationStamp{
		Document:   "AB-12",
		Role:       models.RoleOwner,
		AttendeeID: "att-1",
	}))
	require.NoError(t, err)
	assert.True(t, rec.RegisteredInAssembly)
	require.NotNil(t, rec.Registration)
	assert.Equal(t, "att-1", rec.Registration.AttendeeID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateMissingRecord(t *testing.T) {
	store, mock := newMockStore(t)
	blocked := true

	mock.ExpectQuery("UPDATE registry_properties").
		WithArgs("list-1", "missing", true).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Update(context.Background(), "list-1", "missing", models.Patch{VoteBlocked: &blocked})
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresSoftDeleteRejectsRegistered(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE registry_properties SET is_deleted = TRUE").
		WithArgs("list-1", "apt-101").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT .* FROM registry_properties WHERE list_id = \\$1 AND id = \\$2").
		WithArgs("list-1", "apt-101").
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow("apt-101", "AB-12", "Tower A", "101", 10.0, 1.0, true, false, false, nil))

	_, err := store.SoftDeleteIfUnregistered(context.Background(), "list-1", "apt-101")
	require.ErrorIs(t, err, sentinel.ErrInvalidState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStampIfUnclaimed(t *testing.T) {
	stamp := models.RegistrationStamp{Document: "AB-12", Role: models.RoleOwner, AttendeeID: "att-1"}

	t.Run("claims in one conditional update", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("UPDATE registry_properties SET registered_in_assembly = TRUE, registration = \\$3\\s+" +
			"WHERE list_id = \\$1 AND id = \\$2 AND is_deleted = FALSE").
			WithArgs("list-1", "apt-101", sqlmock.AnyArg(), "att-1").
			WillReturnRows(sqlmock.NewRows(recordColumns).
				AddRow("apt-101", "AB-12", "Tower A", "101", 10.0, 1.0, true, false, false,
					[]byte(`{"document":"AB-12","role":"owner","attendee_id":"att-1"}`)))

		rec, err := store.StampIfUnclaimed(context.Background(), "list-1", "apt-101", stamp)
		require.NoError(t, err)
		assert.True(t, rec.RegisteredInAssembly)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deleted record", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("UPDATE registry_properties").WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT .* FROM registry_properties WHERE list_id = \\$1 AND id = \\$2").
			WithArgs("list-1", "apt-101").
			WillReturnRows(sqlmock.NewRows(recordColumns).
				AddRow("apt-101", "AB-12", "Tower A", "101", 10.0, 1.0, false, true, false, nil))

		_, err := store.StampIfUnclaimed(context.Background(), "list-1", "apt-101", stamp)
		require.ErrorIs(t, err, sentinel.ErrInvalidState)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("claimed by another attendee", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("UPDATE registry_properties").WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT .* FROM registry_properties").
			WillReturnRows(sqlmock.NewRows(recordColumns).
				AddRow("apt-101", "AB-12", "Tower A", "101", 10.0, 1.0, true, false, false,
					[]byte(`{"document":"CD-34","role":"proxy","attendee_id":"att-9"}`)))

		_, err := store.StampIfUnclaimed(context.Background(), "list-1", "apt-101", stamp)
		require.ErrorIs(t, err, sentinel.ErrConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresImportConflictRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO registry_properties").
		WithArgs("list-1", "apt-101", "AB-12", "ab-12", "Tower A", "101", 10.0, 1.0, false, false, false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO registry_properties").
		WithArgs("list-1", "apt-101", "CD-34", "cd-34", "Tower A", "101", 5.0, 1.0, false, false, false).
		WillReturnError(&pq.Error{Code: uniqueViolation})
	mock.ExpectRollback()

	err := store.Import(context.Background(), "list-1", []models.PropertyRecord{
		{ID: "apt-101", OwnerDocument: "AB-12", Group: "Tower A", Property: "101", Coefficient: 10, Votes: 1},
		{ID: "apt-101", OwnerDocument: "CD-34", Group: "Tower A", Property: "101", Coefficient: 5, Votes: 1},
	})
	require.ErrorIs(t, err, sentinel.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}
