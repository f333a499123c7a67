package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmacore/pharmacore/internal/shared"
)

// Repository persists products in PostgreSQL. Every method issues exactly
// one statement; the store offers no multi-statement transactions.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Product, error)
	Get(ctx context.Context, id string) (Product, error)
	FindByNameBatch(ctx context.Context, name, batchNumber string) (Product, error)
	Insert(ctx context.Context, product Product) error
	Update(ctx context.Context, product Product) error
	UpdateStock(ctx context.Context, id string, stock int64) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, name, category, supplier, batch_number, expiry_date,
	invoice_price, supplier_discount_percent, vat_rate, other_charges,
	cost_price, selling_price, current_stock, min_stock_level, barcode,
	created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Supplier, &p.BatchNumber, &p.ExpiryDate,
		&p.InvoicePrice, &p.SupplierDiscountPercent, &p.VATRate, &p.OtherCharges,
		&p.CostPrice, &p.SellingPrice, &p.CurrentStock, &p.MinStockLevel, &p.Barcode,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, shared.WrapStore("products.select", err)
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Category != "" {
		argCount++
		query += ` AND category = $` + strconv.Itoa(argCount)
		args = append(args, filters.Category)
	}
	if filters.Supplier != "" {
		argCount++
		query += ` AND supplier = $` + strconv.Itoa(argCount)
		args = append(args, filters.Supplier)
	}
	if filters.LowStock {
		query += ` AND current_stock <= min_stock_level`
	}

	query += ` ORDER BY created_at DESC`

	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.WrapStore("products.select", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *repository) FindByNameBatch(ctx context.Context, name, batchNumber string) (Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE name_key = $1 AND batch_number = $2`,
		NormalizeName(name), batchNumber)
	return scanProduct(row)
}

func (r *repository) Insert(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO products
		(id, name, name_key, category, supplier, batch_number, expiry_date,
		 invoice_price, supplier_discount_percent, vat_rate, other_charges,
		 cost_price, selling_price, current_stock, min_stock_level, barcode,
		 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		p.ID, p.Name, NormalizeName(p.Name), p.Category, p.Supplier, p.BatchNumber, p.ExpiryDate,
		p.InvoicePrice, p.SupplierDiscountPercent, p.VATRate, p.OtherCharges,
		p.CostPrice, p.SellingPrice, p.CurrentStock, p.MinStockLevel, p.Barcode,
		p.CreatedAt, p.UpdatedAt)
	return shared.WrapStore("products.insert", err)
}

func (r *repository) Update(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET
		name = $2, name_key = $3, category = $4, supplier = $5, batch_number = $6,
		expiry_date = $7, invoice_price = $8, supplier_discount_percent = $9,
		vat_rate = $10, other_charges = $11, cost_price = $12, selling_price = $13,
		current_stock = $14, min_stock_level = $15, barcode = $16, updated_at = $17
		WHERE id = $1`,
		p.ID, p.Name, NormalizeName(p.Name), p.Category, p.Supplier, p.BatchNumber,
		p.ExpiryDate, p.InvoicePrice, p.SupplierDiscountPercent,
		p.VATRate, p.OtherCharges, p.CostPrice, p.SellingPrice,
		p.CurrentStock, p.MinStockLevel, p.Barcode, time.Now().UTC())
	if err != nil {
		return shared.WrapStore("products.update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStock(ctx context.Context, id string, stock int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET current_stock = $2, updated_at = $3 WHERE id = $1`,
		id, stock, time.Now().UTC())
	if err != nil {
		return shared.WrapStore("products.update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return shared.WrapStore("products.delete", err)
}
