package receiving

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmacore/pharmacore/internal/shared"
)

// Repository persists invoices and invoice items in PostgreSQL. Each method
// is one independent statement; the saga supplies ordering and compensation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) InsertInvoice(ctx context.Context, invoice Invoice) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO invoices (id, number, supplier, date, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		invoice.ID, invoice.Number, invoice.Supplier, invoice.Date, invoice.TotalAmount, invoice.CreatedAt)
	return shared.WrapStore("invoices.insert", err)
}

func (r *Repository) DeleteInvoice(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	return shared.WrapStore("invoices.delete", err)
}

// InsertInvoiceItems writes all item rows in one multi-row statement so the
// batch lands atomically even without a surrounding transaction.
func (r *Repository) InsertInvoiceItems(ctx context.Context, items []InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`INSERT INTO invoice_items
		(id, invoice_id, product_id, product_name, batch_number, quantity,
		 invoice_price, supplier_discount_percent, vat_rate, other_charges,
		 net_cost, selling_price, line_total) VALUES `)
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 13
		sb.WriteString("(")
		for col := 1; col <= 13; col++ {
			if col > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+col)
		}
		sb.WriteString(")")
		args = append(args,
			item.ID, item.InvoiceID, item.ProductID, item.ProductName, item.BatchNumber, item.Quantity,
			item.InvoicePrice, item.SupplierDiscountPercent, item.VATRate, item.OtherCharges,
			item.NetCost, item.SellingPrice, item.LineTotal)
	}
	_, err := r.pool.Exec(ctx, sb.String(), args...)
	return shared.WrapStore("invoice_items.insert", err)
}

func (r *Repository) GetInvoice(ctx context.Context, id string) (Invoice, []InvoiceItem, error) {
	var invoice Invoice
	err := r.pool.QueryRow(ctx,
		`SELECT id, number, supplier, date, total_amount, created_at FROM invoices WHERE id = $1`, id).
		Scan(&invoice.ID, &invoice.Number, &invoice.Supplier, &invoice.Date, &invoice.TotalAmount, &invoice.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, nil, shared.ErrNotFound
		}
		return Invoice{}, nil, shared.WrapStore("invoices.select", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, product_id, product_name, batch_number, quantity,
		invoice_price, supplier_discount_percent, vat_rate, other_charges, net_cost, selling_price, line_total
		FROM invoice_items WHERE invoice_id = $1`, id)
	if err != nil {
		return Invoice{}, nil, shared.WrapStore("invoice_items.select", err)
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.ProductName, &item.BatchNumber, &item.Quantity,
			&item.InvoicePrice, &item.SupplierDiscountPercent, &item.VATRate, &item.OtherCharges,
			&item.NetCost, &item.SellingPrice, &item.LineTotal); err != nil {
			return Invoice{}, nil, shared.WrapStore("invoice_items.select", err)
		}
		items = append(items, item)
	}
	return invoice, items, rows.Err()
}

func (r *Repository) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	query := `SELECT id, number, supplier, date, total_amount, created_at FROM invoices`
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
		return nil, shared.WrapStore("invoices.select", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var invoice Invoice
		if err := rows.Scan(&invoice.ID, &invoice.Number, &invoice.Supplier, &invoice.Date, &invoice.TotalAmount, &invoice.CreatedAt); err != nil {
			return nil, shared.WrapStore("invoices.select", err)
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}
