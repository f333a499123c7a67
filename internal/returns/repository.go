package returns

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmacore/pharmacore/internal/shared"
)

// Repository persists credit notes in PostgreSQL, one statement per call.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) InsertCreditNote(ctx context.Context, note CreditNote) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO credit_notes (id, invoice_number, supplier, date, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		note.ID, note.InvoiceNumber, note.Supplier, note.Date, note.TotalAmount, note.CreatedAt)
	return shared.WrapStore("credit_notes.insert", err)
}

func (r *Repository) InsertCreditNoteItem(ctx context.Context, item CreditNoteItem) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO credit_note_items
		(id, credit_note_id, product_id, product_name, quantity, reason, total_credit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, item.CreditNoteID, item.ProductID, item.ProductName, item.Quantity, item.Reason, item.TotalCredit)
	return shared.WrapStore("credit_note_items.insert", err)
}

func (r *Repository) GetCreditNote(ctx context.Context, id string) (CreditNote, []CreditNoteItem, error) {
	var note CreditNote
	err := r.pool.QueryRow(ctx,
		`SELECT id, invoice_number, supplier, date, total_amount, created_at FROM credit_notes WHERE id = $1`, id).
		Scan(&note.ID, &note.InvoiceNumber, &note.Supplier, &note.Date, &note.TotalAmount, &note.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CreditNote{}, nil, shared.ErrNotFound
		}
		return CreditNote{}, nil, shared.WrapStore("credit_notes.select", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT id, credit_note_id, product_id, product_name, quantity, reason, total_credit
		FROM credit_note_items WHERE credit_note_id = $1`, id)
	if err != nil {
		return CreditNote{}, nil, shared.WrapStore("credit_note_items.select", err)
	}
	defer rows.Close()

	var items []CreditNoteItem
	for rows.Next() {
		var item CreditNoteItem
		if err := rows.Scan(&item.ID, &item.CreditNoteID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.Reason, &item.TotalCredit); err != nil {
			return CreditNote{}, nil, shared.WrapStore("credit_note_items.select", err)
		}
		items = append(items, item)
	}
	return note, items, rows.Err()
}

func (r *Repository) ListCreditNotes(ctx context.Context, filter ListFilter) ([]CreditNote, error) {
	query := `SELECT id, invoice_number, supplier, date, total_amount, created_at FROM credit_notes`
	args := []any{}
	if filter.Supplier != "" {
		query += ` WHERE supplier = $1`
		args = append(args, filter.Supplier)
	}
	query += ` ORDER BY date DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, filter.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.WrapStore("credit_notes.select", err)
	}
	defer rows.Close()

	var notes []CreditNote
	for rows.Next() {
		var note CreditNote
		if err := rows.Scan(&note.ID, &note.InvoiceNumber, &note.Supplier, &note.Date, &note.TotalAmount, &note.CreatedAt); err != nil {
			return nil, shared.WrapStore("credit_notes.select", err)
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}
