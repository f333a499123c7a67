package returns

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore/pharmacore/internal/catalog"
	"github.com/pharmacore/pharmacore/internal/shared"
)

// ProductStore exposes the single-record product calls the processor needs.
// catalog.Repository satisfies it.
type ProductStore interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	UpdateStock(ctx context.Context, id string, stock int64) error
}

// CreditNoteStore persists credit notes and their items.
type CreditNoteStore interface {
	InsertCreditNote(ctx context.Context, note CreditNote) error
	InsertCreditNoteItem(ctx context.Context, item CreditNoteItem) error
	GetCreditNote(ctx context.Context, id string) (CreditNote, []CreditNoteItem, error)
	ListCreditNotes(ctx context.Context, filter ListFilter) ([]CreditNote, error)
}

// Service processes supplier returns. Unlike the receipt saga this flow has
// no compensation: a line that fails mid-loop leaves the lines before it
// committed. That asymmetry mirrors the receipt/return split in the ledger
// and is covered by tests as current behavior.
type Service struct {
	notes    CreditNoteStore
	products ProductStore
	activity shared.ActivityPort
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(notes CreditNoteStore, products ProductStore, activity shared.ActivityPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{notes: notes, products: products, activity: activity, logger: logger}
}

// Submit validates the return, inserts the header, then processes the items
// strictly sequentially: fetch the product, reject the line if the decrement
// would drive stock negative, otherwise write the new stock and insert the
// item row. Returns the created credit note id.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (string, error) {
	if err := validateSubmit(input); err != nil {
		return "", err
	}

	var totalAmount float64
	for _, item := range input.Items {
		totalAmount += float64(item.Quantity) * item.UnitCredit
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	note := CreditNote{
		ID:            uuid.NewString(),
		InvoiceNumber: input.InvoiceNumber,
		Supplier:      input.Supplier,
		Date:          date,
		TotalAmount:   totalAmount,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.notes.InsertCreditNote(ctx, note); err != nil {
		return "", err
	}

	for _, item := range input.Items {
		product, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			return "", fmt.Errorf("returns: line for product %s: %w", item.ProductID, err)
		}
		newStock := product.CurrentStock - item.Quantity
		if newStock < 0 {
			return "", &shared.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   item.Quantity,
				Available:   product.CurrentStock,
			}
		}
		if err := s.products.UpdateStock(ctx, product.ID, newStock); err != nil {
			return "", fmt.Errorf("returns: line for product %s: %w", product.Name, err)
		}
		row := CreditNoteItem{
			ID:           uuid.NewString(),
			CreditNoteID: note.ID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			Quantity:     item.Quantity,
			Reason:       item.Reason,
			TotalCredit:  float64(item.Quantity) * item.UnitCredit,
		}
		if err := s.notes.InsertCreditNoteItem(ctx, row); err != nil {
			return "", fmt.Errorf("returns: line for product %s: %w", product.Name, err)
		}
	}

	s.record(ctx, "credit_note_created", fmt.Sprintf("Credit note for invoice %s (%s) processed, total %.2f",
		note.InvoiceNumber, note.Supplier, note.TotalAmount), input.ActorID)
	return note.ID, nil
}

// Get returns a credit note with its items.
func (s *Service) Get(ctx context.Context, id string) (CreditNote, []CreditNoteItem, error) {
	if id == "" {
		return CreditNote{}, nil, shared.NewValidationError("returns.get", "id")
	}
	return s.notes.GetCreditNote(ctx, id)
}

// List returns credit notes, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]CreditNote, error) {
	return s.notes.ListCreditNotes(ctx, filter)
}

func validateSubmit(input SubmitInput) error {
	var missing []string
	if input.InvoiceNumber == "" {
		missing = append(missing, "invoice_number")
	}
	if input.Supplier == "" {
		missing = append(missing, "supplier")
	}
	if len(input.Items) == 0 {
		missing = append(missing, "items")
	}
	if len(missing) > 0 {
		return shared.NewValidationError("returns.submit", missing...)
	}
	for i, item := range input.Items {
		if item.ProductID == "" {
			return shared.NewValidationError("returns.submit", fmt.Sprintf("items[%d].product_id", i))
		}
		if item.Quantity <= 0 {
			return shared.NewValidationError("returns.submit", fmt.Sprintf("items[%d].quantity", i))
		}
		if item.UnitCredit < 0 {
			return shared.NewValidationError("returns.submit", fmt.Sprintf("items[%d].unit_credit", i))
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
