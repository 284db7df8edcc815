package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/medipass-api/internal/repository"
	"github.com/jwalitptl/medipass-api/internal/service/directory"
	"github.com/jwalitptl/medipass-api/internal/service/scheduling"
	"github.com/jwalitptl/medipass-api/pkg/logger"
)

// Service moves state between the in-memory services and a snapshot store.
type Service struct {
	store  repository.SnapshotStore
	dir    *directory.Service
	engine *scheduling.Service
	log    *logger.Logger
}

func NewService(store repository.SnapshotStore, dir *directory.Service, engine *scheduling.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, dir: dir, engine: engine, log: log}
}

// Result summarizes a restore.
type Result struct {
	Patients       int
	Practitioners  int
	Administrators int
	Consultations  int
	Skipped        int
	Fresh          bool
}

// Restore loads the stored snapshot. People are restored before consultations so
// cross references resolve. An empty store is a fresh start, not an error.
func (s *Service) Restore(ctx context.Context) (Result, error) {
	snap, err := s.store.Load(ctx)
	if errors.Is(err, repository.ErrNoSnapshot) {
		s.log.Info("no stored snapshot, starting empty")
		return Result{Fresh: true}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	people := s.dir.Restore(snap.Patients, snap.Practitioners, snap.Administrators)
	consultations := s.engine.Restore(snap.Consultations)

	res := Result{
		Patients:       people.Patients,
		Practitioners:  people.Practitioners,
		Administrators: people.Administrators,
		Consultations:  consultations.Loaded,
		Skipped:        snap.Skipped + people.Skipped + consultations.Skipped,
	}
	s.log.Info("snapshot restored",
		"patients", res.Patients,
		"practitioners", res.Practitioners,
		"administrators", res.Administrators,
		"consultations", res.Consultations,
		"skipped", res.Skipped,
	)
	return res, nil
}

// Snapshot captures the current state. Archived practitioners are included.
func (s *Service) Snapshot() *repository.Snapshot {
	return &repository.Snapshot{
		Patients:       s.dir.Patients(),
		Practitioners:  s.dir.AllPractitioners(),
		Administrators: s.dir.Administrators(),
		Consultations:  s.engine.Snapshot(),
	}
}

func (s *Service) Save(ctx context.Context) error {
	snap := s.Snapshot()
	if err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	s.log.Debug("snapshot saved", "patients", len(snap.Patients), "consultations", len(snap.Consultations))
	return nil
}

// Export writes the current state to another store, e.g. a flat-file copy of a
// postgres-backed instance.
func (s *Service) Export(ctx context.Context, target repository.SnapshotStore) error {
	return target.Save(ctx, s.Snapshot())
}
