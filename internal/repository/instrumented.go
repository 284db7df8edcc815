package repository

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/medipass-api/pkg/metrics"
)

type instrumentedStore struct {
	next    SnapshotStore
	metrics *metrics.Metrics
}

// Instrumented records count and latency of every Load and Save on m.
func Instrumented(next SnapshotStore, m *metrics.Metrics) SnapshotStore {
	if m == nil {
		return next
	}
	return &instrumentedStore{next: next, metrics: m}
}

func (s *instrumentedStore) Load(ctx context.Context) (*Snapshot, error) {
	timer := prometheus.NewTimer(s.metrics.SnapshotLatency.WithLabelValues("load"))
	defer timer.ObserveDuration()

	snap, err := s.next.Load(ctx)
	s.count("load", err)
	return snap, err
}

func (s *instrumentedStore) Save(ctx context.Context, snap *Snapshot) error {
	timer := prometheus.NewTimer(s.metrics.SnapshotLatency.WithLabelValues("save"))
	defer timer.ObserveDuration()

	err := s.next.Save(ctx, snap)
	s.count("save", err)
	return err
}

func (s *instrumentedStore) count(op string, err error) {
	status := "success"
	switch {
	case errors.Is(err, ErrNoSnapshot):
		status = "empty"
	case err != nil:
		status = "error"
	}
	s.metrics.SnapshotOperations.WithLabelValues(op, status).Inc()
}
