package receiving

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore/pharmacore/internal/catalog"
	"github.com/pharmacore/pharmacore/internal/pricing"
	"github.com/pharmacore/pharmacore/internal/shared"
)

// ProductStore exposes the single-record product calls the saga needs.
// catalog.Repository satisfies it.
type ProductStore interface {
	FindByNameBatch(ctx context.Context, name, batchNumber string) (catalog.Product, error)
	Insert(ctx context.Context, product catalog.Product) error
	Update(ctx context.Context, product catalog.Product) error
	UpdateStock(ctx context.Context, id string, stock int64) error
}

// InvoiceStore persists invoice headers and line rows.
type InvoiceStore interface {
	InsertInvoice(ctx context.Context, invoice Invoice) error
	DeleteInvoice(ctx context.Context, id string) error
	InsertInvoiceItems(ctx context.Context, items []InvoiceItem) error
	GetInvoice(ctx context.Context, id string) (Invoice, []InvoiceItem, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error)
}

// IdempotencyGuard blocks duplicate commits. shared.IdempotencyStore
// satisfies it.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service commits goods receipts against the inventory ledger.
type Service struct {
	invoices    InvoiceStore
	products    ProductStore
	activity    shared.ActivityPort
	idempotency IdempotencyGuard
	logger      *slog.Logger
}

// NewService builds Service.
func NewService(invoices InvoiceStore, products ProductStore, activity shared.ActivityPort, idem IdempotencyGuard, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{invoices: invoices, products: products, activity: activity, idempotency: idem, logger: logger}
}

// resolvedLine pairs one input line with its derived pricing.
type resolvedLine struct {
	input LineInput
	quote pricing.Result
	total float64
}

// Commit executes the multi-step receipt commit. Steps run strictly
// sequentially; on the first failure every stock update already committed is
// reverted to its recorded original value and the invoice header is deleted.
// Product rows newly created by earlier steps are left in place. notify, when
// non-nil, receives a progress notification after each step.
func (s *Service) Commit(ctx context.Context, input CommitInput, notify ProgressFunc) (string, error) {
	if err := validateCommit(input); err != nil {
		return "", err
	}

	lines := make([]resolvedLine, 0, len(input.Items))
	var totalAmount float64
	for _, item := range input.Items {
		quote := pricing.Quote(pricing.Inputs{
			InvoicePrice:            item.InvoicePrice,
			SupplierDiscountPercent: item.SupplierDiscountPercent,
			VATRate:                 item.VATRate,
			OtherCharges:            item.OtherCharges,
			CostPrice:               item.CostPrice,
		}, item.SellingPrice)
		total := float64(item.Quantity) * quote.NetCost
		lines = append(lines, resolvedLine{input: item, quote: quote, total: total})
		totalAmount += total
	}

	idemKey := fmt.Sprintf("receipt:%s:%s", input.Number, input.Supplier)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, "receiving"); err != nil {
			return "", err
		}
		insertedKey = true
	}

	invoiceID := uuid.NewString()
	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	invoice := Invoice{
		ID:          invoiceID,
		Number:      input.Number,
		Supplier:    input.Supplier,
		Date:        date,
		TotalAmount: totalAmount,
		CreatedAt:   time.Now().UTC(),
	}

	sg := newSaga(s.logger, notify)
	pending := make([]InvoiceItem, 0, len(lines))

	steps := make([]step, 0, len(lines)+2)
	steps = append(steps, step{
		message: fmt.Sprintf("Invoice %s header created", invoice.Number),
		run: func(ctx context.Context) error {
			sg.compensateWith("delete invoice header", func(ctx context.Context) error {
				return s.invoices.DeleteInvoice(ctx, invoiceID)
			})
			return s.invoices.InsertInvoice(ctx, invoice)
		},
	})
	for i := range lines {
		line := lines[i]
		steps = append(steps, step{
			message: fmt.Sprintf("Stock updated for %s (%d of %d)", line.input.Name, i+1, len(lines)),
			run: func(ctx context.Context) error {
				item, err := s.applyLine(ctx, sg, invoiceID, input.Supplier, line)
				if err != nil {
					return err
				}
				pending = append(pending, item)
				return nil
			},
		})
	}
	steps = append(steps, step{
		message: "Invoice line items saved",
		run: func(ctx context.Context) error {
			return s.invoices.InsertInvoiceItems(ctx, pending)
		},
	})

	if err := sg.run(ctx, steps); err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return "", err
	}

	s.record(ctx, "invoice_committed", fmt.Sprintf("Goods receipt %s from %s committed (%d items, total %.2f)",
		invoice.Number, invoice.Supplier, len(lines), invoice.TotalAmount), input.ActorID)
	return invoiceID, nil
}

// applyLine resolves one receipt line against the catalog. Existing products
// get their stock incremented and pricing refreshed, with the original stock
// recorded for compensation. Unknown products are inserted fresh; those
// inserts are intentionally not compensated, so a later failure leaves the
// new row in place.
func (s *Service) applyLine(ctx context.Context, sg *saga, invoiceID, supplier string, line resolvedLine) (InvoiceItem, error) {
	in := line.input
	product, err := s.products.FindByNameBatch(ctx, in.Name, in.BatchNumber)
	switch {
	case err == nil:
		productID := product.ID
		originalStock := product.CurrentStock
		sg.compensateWith(fmt.Sprintf("restore stock of %s", product.Name), func(ctx context.Context) error {
			return s.products.UpdateStock(ctx, productID, originalStock)
		})
		product.CurrentStock += in.Quantity
		product.InvoicePrice = in.InvoicePrice
		product.SupplierDiscountPercent = in.SupplierDiscountPercent
		product.VATRate = in.VATRate
		product.OtherCharges = in.OtherCharges
		product.CostPrice = line.quote.NetCost
		product.SellingPrice = line.quote.RecommendedSellingPrice
		if !in.ExpiryDate.IsZero() {
			product.ExpiryDate = in.ExpiryDate
		}
		if err := s.products.Update(ctx, product); err != nil {
			return InvoiceItem{}, err
		}
	case errors.Is(err, shared.ErrNotFound):
		now := time.Now().UTC()
		product = catalog.Product{
			ID:                      uuid.NewString(),
			Name:                    in.Name,
			Category:                in.Category,
			Supplier:                supplier,
			BatchNumber:             in.BatchNumber,
			ExpiryDate:              in.ExpiryDate,
			InvoicePrice:            in.InvoicePrice,
			SupplierDiscountPercent: in.SupplierDiscountPercent,
			VATRate:                 in.VATRate,
			OtherCharges:            in.OtherCharges,
			CostPrice:               line.quote.NetCost,
			SellingPrice:            line.quote.RecommendedSellingPrice,
			CurrentStock:            in.Quantity,
			MinStockLevel:           in.MinStockLevel,
			Barcode:                 in.Barcode,
			CreatedAt:               now,
			UpdatedAt:               now,
		}
		if err := s.products.Insert(ctx, product); err != nil {
			return InvoiceItem{}, err
		}
	default:
		return InvoiceItem{}, err
	}

	return InvoiceItem{
		ID:                      uuid.NewString(),
		InvoiceID:               invoiceID,
		ProductID:               product.ID,
		ProductName:             product.Name,
		BatchNumber:             in.BatchNumber,
		Quantity:                in.Quantity,
		InvoicePrice:            in.InvoicePrice,
		SupplierDiscountPercent: in.SupplierDiscountPercent,
		VATRate:                 in.VATRate,
		OtherCharges:            in.OtherCharges,
		NetCost:                 line.quote.NetCost,
		SellingPrice:            line.quote.RecommendedSellingPrice,
		LineTotal:               line.total,
	}, nil
}

// Get returns an invoice with its items.
func (s *Service) Get(ctx context.Context, id string) (Invoice, []InvoiceItem, error) {
	if id == "" {
		return Invoice{}, nil, shared.NewValidationError("receiving.get", "id")
	}
	return s.invoices.GetInvoice(ctx, id)
}

// List returns invoices, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.invoices.ListInvoices(ctx, filter)
}

func validateCommit(input CommitInput) error {
	var missing []string
	if input.Number == "" {
		missing = append(missing, "number")
	}
	if input.Supplier == "" {
		missing = append(missing, "supplier")
	}
	if len(input.Items) == 0 {
		missing = append(missing, "items")
	}
	if len(missing) > 0 {
		return shared.NewValidationError("receiving.commit", missing...)
	}
	for i, item := range input.Items {
		if item.Name == "" {
			return shared.NewValidationError("receiving.commit", fmt.Sprintf("items[%d].name", i))
		}
		if item.Quantity <= 0 {
			return shared.NewValidationError("receiving.commit", fmt.Sprintf("items[%d].quantity", i))
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, code, message, actor string) {
	if s.activity == nil {
		return
	}
	event := shared.ActivityEvent{ActionCode: code, Message: message, ActorID: actor}
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("activity log append failed", slog.String("action", code), slog.Any("error", err))
	}
}
