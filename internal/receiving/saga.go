package receiving

import (
	"context"
	"fmt"
	"log/slog"
)

// ProgressFunc receives a notification after each committed saga step. It is
// an observability contract only; it must not influence the commit.
type ProgressFunc func(stepIndex, totalSteps int, message string)

// step is one independently committed store mutation inside a saga.
type step struct {
	message string
	run     func(ctx context.Context) error
}

// compensation is a recorded undo action for an already committed forward
// effect. Compensations are replayed in reverse order on first failure.
type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// saga executes steps strictly sequentially, one outstanding store call at a
// time, and keeps an undo log of forward effects. The store offers no
// multi-statement transactions, so this is the closest the engine gets to
// all-or-nothing semantics.
type saga struct {
	logger *slog.Logger
	notify ProgressFunc
	undo   []compensation
}

func newSaga(logger *slog.Logger, notify ProgressFunc) *saga {
	if logger == nil {
		logger = slog.Default()
	}
	return &saga{logger: logger, notify: notify}
}

// compensateWith records an undo action for a forward effect that is about
// to be committed. Recording before the write keeps the undo log a superset
// of the committed effects; replaying an undo for a write that never landed
// is harmless because every undo is an absolute-value write or a delete.
func (s *saga) compensateWith(name string, undo func(ctx context.Context) error) {
	s.undo = append(s.undo, compensation{name: name, undo: undo})
}

// run executes the steps in order. On the first failure the undo log is
// replayed in reverse and a single aggregate error is returned stating that
// a rollback was attempted.
func (s *saga) run(ctx context.Context, steps []step) error {
	total := len(steps)
	for i, st := range steps {
		if err := st.run(ctx); err != nil {
			s.rollback(ctx)
			return fmt.Errorf("receiving: %s: %w (a rollback was attempted)", st.message, err)
		}
		if s.notify != nil {
			s.notify(i+1, total, st.message)
		}
	}
	return nil
}

// rollback replays the undo log in reverse. Compensation failures are
// logged, never re-raised; the engine has no further recourse once both the
// forward write and its undo have failed.
func (s *saga) rollback(ctx context.Context) {
	for i := len(s.undo) - 1; i >= 0; i-- {
		entry := s.undo[i]
		if err := entry.undo(ctx); err != nil {
			s.logger.Error("saga compensation failed",
				slog.String("compensation", entry.name),
				slog.Any("error", err))
		}
	}
	s.undo = nil
}
