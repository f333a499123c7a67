package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivityEvent represents a record stored in activity_logs.
type ActivityEvent struct {
	ActionCode string
	Message    string
	ActorID    string
	At         time.Time
}

// ActivityPort is implemented by the activity logger. Callers treat Record
// as fire-and-forget: a failed append must never fail the parent mutation.
type ActivityPort interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivityLogger appends events into activity_logs.
type ActivityLogger struct {
	pool *pgxpool.Pool
}

// NewActivityLogger returns a new ActivityLogger.
func NewActivityLogger(pool *pgxpool.Pool) *ActivityLogger {
	return &ActivityLogger{pool: pool}
}

// Record persists the event.
func (l *ActivityLogger) Record(ctx context.Context, event ActivityEvent) error {
	if l == nil {
		return errors.New("activity logger not initialised")
	}
	if event.ActionCode == "" || event.Message == "" {
		return errors.New("activity event requires action code and message")
	}
	at := event.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := l.pool.Exec(ctx, `INSERT INTO activity_logs (action_code, message, actor_id, occurred_at) VALUES ($1, $2, $3, $4)`, event.ActionCode, event.Message, event.ActorID, at)
	return err
}
