package returns

import "time"

// CreditNote is the header of one supplier return. Created once per return;
// there is no compensation path on this flow.
type CreditNote struct {
	ID            string    `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	Supplier      string    `json:"supplier"`
	Date          time.Time `json:"date"`
	TotalAmount   float64   `json:"total_amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreditNoteItem is one returned line.
type CreditNoteItem struct {
	ID           string  `json:"id"`
	CreditNoteID string  `json:"credit_note_id"`
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	Quantity     int64   `json:"quantity"`
	Reason       string  `json:"reason"`
	TotalCredit  float64 `json:"total_credit"`
}

// SubmitInput describes one return to process.
type SubmitInput struct {
	InvoiceNumber string
	Supplier      string
	Date          time.Time
	ActorID       string
	Items         []ItemInput
}

// ItemInput is one returned line. UnitCredit is the amount credited per
// unit, as agreed with the supplier.
type ItemInput struct {
	ProductID  string
	Quantity   int64
	Reason     string
	UnitCredit float64
}

// ListFilter narrows credit note listings.
type ListFilter struct {
	Supplier string
	Limit    int
}
