package journal

import (
	"context"
	"log/slog"

	"coopsched/internal/logging"
	"coopsched/internal/sched"
)

// Sink appends a run's status events to the journal. Tick events are not
// stored. Write failures are logged and never reach the scheduler.
type Sink struct {
	store  *SQLiteStore
	runID  string
	logger *slog.Logger
}

// NewSink returns a sink writing events for runID.
func NewSink(store *SQLiteStore, runID string, logger *slog.Logger) *Sink {
	return &Sink{store: store, runID: runID, logger: logging.Component(logger, "journal", "run_id", runID)}
}

func (s *Sink) Emit(ev sched.StatusEvent) {
	if ev.Kind == sched.StatusTick {
		return
	}
	if err := s.store.AppendEvent(context.Background(), s.runID, ev); err != nil {
		s.logger.Error("journal write failed", "event", ev.Kind.String(), "error", err)
	}
}
