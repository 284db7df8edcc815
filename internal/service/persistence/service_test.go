package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/internal/repository/flatfile"
	"github.com/jwalitptl/medipass-api/internal/service/directory"
	"github.com/jwalitptl/medipass-api/internal/service/scheduling"
)

var now = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func newStack() (*directory.Service, *scheduling.Service) {
	clock := func() time.Time { return now }
	dir := directory.NewService(directory.WithClock(clock))
	engine := scheduling.NewService(dir, scheduling.Options{Now: clock})
	return dir, engine
}

func TestRoundTripThroughFlatFiles(t *testing.T) {
	ctx := context.Background()
	store := flatfile.NewStore(t.TempDir(), time.UTC, nil)

	dir, engine := newStack()
	_, err := dir.CreatePatient(ctx, model.Patient{Person: model.Person{ID: 1, FamilyName: "Martin", GivenName: "Alice"}})
	require.NoError(t, err)
	_, err = dir.CreatePractitioner(ctx, model.Practitioner{
		Person:  model.Person{ID: 10, FamilyName: "House", GivenName: "Gregory"},
		Account: model.Account{Login: "house", Active: true},
	})
	require.NoError(t, err)
	_, err = dir.AddHistoryEntry(ctx, 1, model.HistoryEntry{Category: "allergy", Date: now, Severity: model.SeverityMild})
	require.NoError(t, err)

	booked, err := engine.Book(ctx, scheduling.BookingRequest{
		Start: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), Reason: "checkup", PractitionerID: 10, PatientID: 1,
	})
	require.NoError(t, err)
	cancelled, err := engine.Book(ctx, scheduling.BookingRequest{
		Start: time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC), Reason: "checkup", PractitionerID: 10, PatientID: 1,
	})
	require.NoError(t, err)
	require.NoError(t, engine.Cancel(ctx, cancelled.ID))
	require.NoError(t, dir.RemovePractitioner(ctx, 10))

	require.NoError(t, NewService(store, dir, engine, nil).Save(ctx))

	// a new process
	dir2, engine2 := newStack()
	res, err := NewService(store, dir2, engine2, nil).Restore(ctx)
	require.NoError(t, err)
	assert.False(t, res.Fresh)
	assert.Equal(t, 1, res.Patients)
	assert.Equal(t, 1, res.Practitioners)
	assert.Equal(t, 2, res.Consultations)
	assert.Zero(t, res.Skipped)

	assert.Len(t, dir2.History(1), 1)
	assert.Len(t, engine2.ByPatient(1), 2)
	assert.Len(t, engine2.ByPractitioner(10), 2)
	assert.Empty(t, dir2.Practitioners(), "archived practitioners stay archived")

	got, err := engine2.Consultation(booked.ID)
	require.NoError(t, err)
	assert.Equal(t, booked.Start, got.Start)

	// identifiers continue after the restored ones
	_, err = dir2.CreatePatient(ctx, model.Patient{Person: model.Person{ID: 2, FamilyName: "Durand", GivenName: "Bob"}})
	require.NoError(t, err)
	next, err := engine2.Book(ctx, scheduling.BookingRequest{
		Start: time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC), Reason: "x", PractitionerID: 10, PatientID: 2,
	})
	// the practitioner is archived, so booking is refused
	assert.ErrorIs(t, err, scheduling.ErrPractitionerNotFound)
	assert.Zero(t, next.ID)
}

func TestRestoreFreshStore(t *testing.T) {
	dir, engine := newStack()
	res, err := NewService(flatfile.NewStore(t.TempDir(), time.UTC, nil), dir, engine, nil).Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Fresh)
}
