package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/medipass-api/pkg/logger"
)

// Saver persists the current state.
type Saver interface {
	Save(ctx context.Context) error
}

// SnapshotWorker saves on every tick and once more when its context ends.
type SnapshotWorker struct {
	saver    Saver
	interval time.Duration
	log      *logger.Logger
}

func NewSnapshotWorker(saver Saver, interval time.Duration, log *logger.Logger) *SnapshotWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &SnapshotWorker{
		saver:    saver,
		interval: interval,
		log:      log,
	}
}

// Start blocks until ctx is done. A non-positive interval only saves at shutdown.
func (w *SnapshotWorker) Start(ctx context.Context) {
	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			w.final()
			return
		case <-tick:
			if err := w.saver.Save(ctx); err != nil {
				w.log.Error(err, "periodic snapshot failed")
			}
		}
	}
}

func (w *SnapshotWorker) final() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.saver.Save(ctx); err != nil {
		w.log.Error(err, "final snapshot failed")
		return
	}
	w.log.Info("final snapshot saved")
}
