package catalog

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Product represents one pharmacy product. Products are never destroyed by
// engine flows, only updated; deletion is an explicit user action.
type Product struct {
	ID                      string    `json:"id"`
	Name                    string    `json:"name"`
	Category                string    `json:"category"`
	Supplier                string    `json:"supplier"`
	BatchNumber             string    `json:"batch_number"`
	ExpiryDate              time.Time `json:"expiry_date"`
	InvoicePrice            float64   `json:"invoice_price"`
	SupplierDiscountPercent float64   `json:"supplier_discount_percent"`
	VATRate                 float64   `json:"vat_rate"`
	OtherCharges            float64   `json:"other_charges"`
	CostPrice               float64   `json:"cost_price"`
	SellingPrice            float64   `json:"selling_price"`
	CurrentStock            int64     `json:"current_stock"`
	MinStockLevel           int64     `json:"min_stock_level"`
	Barcode                 string    `json:"barcode"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// LowOnStock reports whether the product sits at or below its reorder level.
func (p Product) LowOnStock() bool {
	return p.CurrentStock <= p.MinStockLevel
}

// NormalizeName produces the lookup key used to match receipt lines against
// existing products. Whitespace runs collapse and case is folded so
// "Amoxicillin  500mg" and "amoxicillin 500MG" resolve to the same product.
func NormalizeName(name string) string {
	collapsed := strings.Join(strings.Fields(name), " ")
	return cases.Fold().String(collapsed)
}

// ErrInvalidStock indicates a direct edit that would persist negative stock.
var ErrInvalidStock = errors.New("catalog: current stock must not be negative")

// ListFilters narrows product listings.
type ListFilters struct {
	Category string
	Supplier string
	LowStock bool
	Limit    int
	Offset   int
}
