package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/internal/repository"
)

func newMockStore(t *testing.T) (*SnapshotStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSnapshotStore(sqlx.NewDb(db, "postgres"), nil), mock
}

var (
	patientCols      = []string{"position", "id", "family_name", "given_name", "birth_date", "sex", "address", "phone", "email", "national_health_id", "blood_group", "record_id", "record_created_at"}
	historyCols      = []string{"position", "id", "patient_id", "category", "description", "occurred_on", "severity", "active"}
	practitionerCols = []string{"position", "id", "family_name", "given_name", "birth_date", "sex", "address", "phone", "email", "login", "secret_hash", "active", "specialty", "license_number", "availability_hours", "archived"}
	adminCols        = []string{"position", "id", "family_name", "given_name", "birth_date", "sex", "address", "phone", "email", "login", "secret_hash", "active", "scope"}
	consultationCols = []string{"position", "id", "start_time", "duration_minutes", "reason", "status", "observations", "diagnosis", "practitioner_id", "patient_id"}
)

func TestSaveReplacesSnapshot(t *testing.T) {
	store, mock := newMockStore(t)

	rec := model.NewMedicalRecord(4, 1, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	rec.AddHistoryEntry(model.HistoryEntry{ID: 2, Category: "allergy", Date: time.Date(2010, 6, 1, 0, 0, 0, 0, time.UTC), Severity: model.SeverityMild})
	snap := &repository.Snapshot{
		Patients: []model.Patient{{Person: model.Person{ID: 1, FamilyName: "Martin", GivenName: "Alice"}, Record: rec}},
		Practitioners: []model.Practitioner{{
			Person:  model.Person{ID: 10, FamilyName: "House", GivenName: "Gregory"},
			Account: model.Account{Login: "house", Active: true},
		}},
		Consultations: []model.Consultation{{ID: 3, Start: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), DurationMinutes: 30, Reason: "checkup", Status: model.StatusScheduled, PractitionerID: 10, PatientID: 1}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE consultations, history_entries, patients").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO patients").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO history_entries").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO practitioners").WillReturnResult(sqlmock.NewResult(0, 1))
	// no administrators: the batch is skipped
	mock.ExpectExec("INSERT INTO consultations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Save(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	snap := &repository.Snapshot{
		Patients: []model.Patient{{Person: model.Person{ID: 1, FamilyName: "Martin", GivenName: "Alice"}}},
	}

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO patients").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.Save(context.Background(), snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert patients")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRebuildsAggregates(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	birth := time.Date(1980, 4, 2, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT \\* FROM patients").WillReturnRows(sqlmock.NewRows(patientCols).
		AddRow(0, 1, "Martin", "Alice", birth, "F", "", "", "", "", "A+", int64(4), created).
		AddRow(1, 2, "Durand", "Bob", nil, "M", "", "", "", "", "", nil, nil))
	mock.ExpectQuery("SELECT \\* FROM history_entries").WillReturnRows(sqlmock.NewRows(historyCols).
		AddRow(0, 2, 1, "allergy", "dust", created, "moderate", true).
		AddRow(1, 3, 2, "allergy", "pollen", created, "mild", true).
		AddRow(2, 4, 1, "allergy", "cats", created, "unknown", true))
	mock.ExpectQuery("SELECT \\* FROM practitioners").WillReturnRows(sqlmock.NewRows(practitionerCols).
		AddRow(0, 10, "House", "Gregory", nil, "", "", "", "", "house", "hash", true, "diagnostics", "RPPS-1", "9h-17h", false))
	mock.ExpectQuery("SELECT \\* FROM administrators").WillReturnRows(sqlmock.NewRows(adminCols))
	mock.ExpectQuery("SELECT \\* FROM consultations").WillReturnRows(sqlmock.NewRows(consultationCols).
		AddRow(0, 3, start, 30, "checkup", "completed", "ok", "flu", 10, 1))

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, snap.Patients, 2)
	alice := snap.Patients[0]
	require.NotNil(t, alice.BirthDate)
	assert.Equal(t, birth, *alice.BirthDate)
	require.NotNil(t, alice.Record)
	assert.Equal(t, 4, alice.Record.ID)
	require.Len(t, alice.Record.History(), 1)
	assert.Equal(t, model.SeverityModerate, alice.Record.History()[0].Severity)

	// Bob has no stored record; his history row and the bad severity are skipped
	assert.Nil(t, snap.Patients[1].Record)
	assert.Equal(t, 2, snap.Skipped)

	require.Len(t, snap.Practitioners, 1)
	assert.Equal(t, "house", snap.Practitioners[0].Login)
	assert.Empty(t, snap.Administrators)

	require.Len(t, snap.Consultations, 1)
	assert.Equal(t, model.StatusCompleted, snap.Consultations[0].Status)
	assert.Equal(t, "flu", snap.Consultations[0].Diagnosis)
}

func TestLoadEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	for _, q := range []struct {
		table string
		cols  []string
	}{
		{"patients", patientCols},
		{"history_entries", historyCols},
		{"practitioners", practitionerCols},
		{"administrators", adminCols},
		{"consultations", consultationCols},
	} {
		mock.ExpectQuery("SELECT \\* FROM " + q.table).WillReturnRows(sqlmock.NewRows(q.cols))
	}

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, repository.ErrNoSnapshot)
}

func TestMigrate(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS patients").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
