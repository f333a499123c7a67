package stocktake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmacore/pharmacore/internal/shared"
)

// Repository abstracts the stock-take store calls used by the service.
type Repository interface {
	InsertSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, limit int) ([]Session, error)
	UpdateSessionName(ctx context.Context, id, name string) error
	UpdateSessionProgress(ctx context.Context, id string, progress map[string]CountEntry) error
	CompleteSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
	InsertEntries(ctx context.Context, entries []Entry) error
	ListEntries(ctx context.Context, sessionID string) ([]Entry, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository backed by PostgreSQL. One statement
// per call; the session row carries the progress map as JSONB.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) InsertSession(ctx context.Context, session Session) error {
	progress, err := json.Marshal(session.ProgressData)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO stock_take_sessions (id, name, status, progress_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, session.Name, string(session.Status), progress, session.CreatedAt, session.UpdatedAt)
	return shared.WrapStore("stock_take_sessions.insert", err)
}

func (r *repository) GetSession(ctx context.Context, id string) (Session, error) {
	var (
		session  Session
		status   string
		progress []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, status, progress_data, created_at, updated_at FROM stock_take_sessions WHERE id = $1`, id).
		Scan(&session.ID, &session.Name, &status, &progress, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, shared.ErrNotFound
		}
		return Session{}, shared.WrapStore("stock_take_sessions.select", err)
	}
	session.Status = SessionStatus(status)
	if len(progress) > 0 {
		if err := json.Unmarshal(progress, &session.ProgressData); err != nil {
			return Session{}, err
		}
	}
	if session.ProgressData == nil {
		session.ProgressData = map[string]CountEntry{}
	}
	return session, nil
}

func (r *repository) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	query := `SELECT id, name, status, progress_data, created_at, updated_at FROM stock_take_sessions ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.WrapStore("stock_take_sessions.select", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			session  Session
			status   string
			progress []byte
		)
		if err := rows.Scan(&session.ID, &session.Name, &status, &progress, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, shared.WrapStore("stock_take_sessions.select", err)
		}
		session.Status = SessionStatus(status)
		if len(progress) > 0 {
			if err := json.Unmarshal(progress, &session.ProgressData); err != nil {
				return nil, err
			}
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *repository) UpdateSessionName(ctx context.Context, id, name string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE stock_take_sessions SET name = $2, updated_at = $3 WHERE id = $1`,
		id, name, time.Now().UTC())
	if err != nil {
		return shared.WrapStore("stock_take_sessions.update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateSessionProgress(ctx context.Context, id string, progress map[string]CountEntry) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE stock_take_sessions SET progress_data = $2, updated_at = $3 WHERE id = $1`,
		id, payload, time.Now().UTC())
	if err != nil {
		return shared.WrapStore("stock_take_sessions.update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CompleteSession flips the status and clears the server-side progress map
// in one statement.
func (r *repository) CompleteSession(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE stock_take_sessions SET status = $2, progress_data = '{}', updated_at = $3 WHERE id = $1`,
		id, string(StatusCompleted), time.Now().UTC())
	if err != nil {
		return shared.WrapStore("stock_take_sessions.update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM stock_take_sessions WHERE id = $1`, id)
	return shared.WrapStore("stock_take_sessions.delete", err)
}

func (r *repository) InsertEntries(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`INSERT INTO stock_take_entries
		(id, session_id, product_id, product_name, expected_stock, actual_stock,
		 difference, value_difference, reason, operator, created_at) VALUES `)
	for i, entry := range entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 11
		sb.WriteString("(")
		for col := 1; col <= 11; col++ {
			if col > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+col)
		}
		sb.WriteString(")")
		args = append(args,
			entry.ID, entry.SessionID, entry.ProductID, entry.ProductName, entry.ExpectedStock, entry.ActualStock,
			entry.Difference, entry.ValueDifference, entry.Reason, entry.Operator, entry.CreatedAt)
	}
	_, err := r.pool.Exec(ctx, sb.String(), args...)
	return shared.WrapStore("stock_take_entries.insert", err)
}

func (r *repository) ListEntries(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, session_id, product_id, product_name, expected_stock, actual_stock,
		difference, value_difference, reason, operator, created_at
		FROM stock_take_entries WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, shared.WrapStore("stock_take_entries.select", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ID, &entry.SessionID, &entry.ProductID, &entry.ProductName,
			&entry.ExpectedStock, &entry.ActualStock, &entry.Difference, &entry.ValueDifference,
			&entry.Reason, &entry.Operator, &entry.CreatedAt); err != nil {
			return nil, shared.WrapStore("stock_take_entries.select", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
