package repository

import (
	"context"
	"errors"

	"github.com/jwalitptl/medipass-api/internal/model"
)

// ErrNoSnapshot is returned by Load when the store has never been written.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Snapshot is the persisted state of the directory and the scheduling engine.
// Patients carry their medical record, history entries included; consultation
// references are rebuilt from Consultations on restore.
type Snapshot struct {
	Patients       []model.Patient
	Practitioners  []model.Practitioner
	Administrators []model.Administrator
	Consultations  []model.Consultation

	// Skipped counts malformed rows dropped while loading.
	Skipped int
}

// All repository interfaces in one file
type (
	// SnapshotStore persists whole snapshots. Save replaces what was stored.
	SnapshotStore interface {
		Load(ctx context.Context) (*Snapshot, error)
		Save(ctx context.Context, snap *Snapshot) error
	}
)
