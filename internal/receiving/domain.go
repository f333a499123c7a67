package receiving

import (
	"time"
)

// Invoice is the goods receipt header. Created once per receipt; its items
// are immutable after insert.
type Invoice struct {
	ID          string    `json:"id"`
	Number      string    `json:"number"`
	Supplier    string    `json:"supplier"`
	Date        time.Time `json:"date"`
	TotalAmount float64   `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// InvoiceItem is one received line with its pricing snapshot at commit time.
type InvoiceItem struct {
	ID                      string  `json:"id"`
	InvoiceID               string  `json:"invoice_id"`
	ProductID               string  `json:"product_id"`
	ProductName             string  `json:"product_name"`
	BatchNumber             string  `json:"batch_number"`
	Quantity                int64   `json:"quantity"`
	InvoicePrice            float64 `json:"invoice_price"`
	SupplierDiscountPercent float64 `json:"supplier_discount_percent"`
	VATRate                 float64 `json:"vat_rate"`
	OtherCharges            float64 `json:"other_charges"`
	NetCost                 float64 `json:"net_cost"`
	SellingPrice            float64 `json:"selling_price"`
	LineTotal               float64 `json:"line_total"`
}

// CommitInput describes one goods receipt to commit.
type CommitInput struct {
	Number   string
	Supplier string
	Date     time.Time
	ActorID  string
	Items    []LineInput
}

// LineInput carries one receipt line. Name and batch number identify the
// product; the remaining fields feed the pricing calculator and, for
// products seen for the first time, the new catalog row.
type LineInput struct {
	Name                    string
	Category                string
	BatchNumber             string
	ExpiryDate              time.Time
	Quantity                int64
	InvoicePrice            float64
	SupplierDiscountPercent float64
	VATRate                 float64
	OtherCharges            float64
	CostPrice               float64
	SellingPrice            float64
	MinStockLevel           int64
	Barcode                 string
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	Supplier string
	Limit    int
}
