package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pharmacore/pharmacore/internal/pricing"
	"github.com/pharmacore/pharmacore/internal/shared"
)

// Service coordinates direct product edits. Receipt, return and stock-take
// mutations go through their own packages; this service only covers the
// catalog surface.
type Service struct {
	repo     Repository
	activity shared.ActivityPort
	logger   *slog.Logger
	lowStock singleflight.Group
}

// NewService builds Service.
func NewService(repo Repository, activity shared.ActivityPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, activity: activity, logger: logger}
}

// ProductInput carries the editable product fields.
type ProductInput struct {
	Name                    string
	Category                string
	Supplier                string
	BatchNumber             string
	ExpiryDate              time.Time
	InvoicePrice            float64
	SupplierDiscountPercent float64
	VATRate                 float64
	OtherCharges            float64
	CostPrice               float64
	SellingPrice            float64
	CurrentStock            int64
	MinStockLevel           int64
	Barcode                 string
}

func (in ProductInput) pricingInputs() pricing.Inputs {
	return pricing.Inputs{
		InvoicePrice:            in.InvoicePrice,
		SupplierDiscountPercent: in.SupplierDiscountPercent,
		VATRate:                 in.VATRate,
		OtherCharges:            in.OtherCharges,
		CostPrice:               in.CostPrice,
	}
}

// Create inserts a new product with derived pricing.
func (s *Service) Create(ctx context.Context, input ProductInput) (Product, error) {
	if input.Name == "" {
		return Product{}, shared.NewValidationError("catalog.create", "name")
	}
	if input.CurrentStock < 0 {
		return Product{}, ErrInvalidStock
	}
	quote := pricing.Quote(input.pricingInputs(), input.SellingPrice)
	now := time.Now().UTC()
	product := Product{
		ID:                      uuid.NewString(),
		Name:                    input.Name,
		Category:                input.Category,
		Supplier:                input.Supplier,
		BatchNumber:             input.BatchNumber,
		ExpiryDate:              input.ExpiryDate,
		InvoicePrice:            input.InvoicePrice,
		SupplierDiscountPercent: input.SupplierDiscountPercent,
		VATRate:                 input.VATRate,
		OtherCharges:            input.OtherCharges,
		CostPrice:               quote.NetCost,
		SellingPrice:            quote.RecommendedSellingPrice,
		CurrentStock:            input.CurrentStock,
		MinStockLevel:           input.MinStockLevel,
		Barcode:                 input.Barcode,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := s.repo.Insert(ctx, product); err != nil {
		return Product{}, err
	}
	s.record(ctx, "product_created", fmt.Sprintf("Product %q (batch %s) created", product.Name, product.BatchNumber))
	return product, nil
}

// Update applies a direct edit and re-derives the pricing fields.
func (s *Service) Update(ctx context.Context, id string, input ProductInput) (Product, error) {
	if id == "" {
		return Product{}, shared.NewValidationError("catalog.update", "id")
	}
	if input.Name == "" {
		return Product{}, shared.NewValidationError("catalog.update", "name")
	}
	if input.CurrentStock < 0 {
		return Product{}, ErrInvalidStock
	}
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	quote := pricing.Quote(input.pricingInputs(), input.SellingPrice)
	product.Name = input.Name
	product.Category = input.Category
	product.Supplier = input.Supplier
	product.BatchNumber = input.BatchNumber
	product.ExpiryDate = input.ExpiryDate
	product.InvoicePrice = input.InvoicePrice
	product.SupplierDiscountPercent = input.SupplierDiscountPercent
	product.VATRate = input.VATRate
	product.OtherCharges = input.OtherCharges
	product.CostPrice = quote.NetCost
	product.SellingPrice = quote.RecommendedSellingPrice
	product.CurrentStock = input.CurrentStock
	product.MinStockLevel = input.MinStockLevel
	product.Barcode = input.Barcode
	if err := s.repo.Update(ctx, product); err != nil {
		return Product{}, err
	}
	s.record(ctx, "product_updated", fmt.Sprintf("Product %q updated", product.Name))
	return product, nil
}

// Get fetches a product by id.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	if id == "" {
		return Product{}, shared.NewValidationError("catalog.get", "id")
	}
	return s.repo.Get(ctx, id)
}

// List returns products matching the filters, newest first.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, error) {
	return s.repo.List(ctx, filters)
}

// Delete removes a product. Explicit user action only.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return shared.NewValidationError("catalog.delete", "id")
	}
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "product_deleted", fmt.Sprintf("Product %q (batch %s) deleted", product.Name, product.BatchNumber))
	return nil
}

// LowStock lists products at or below their reorder level. Concurrent calls
// collapse into a single store query.
func (s *Service) LowStock(ctx context.Context) ([]Product, error) {
	v, err, _ := s.lowStock.Do("lowstock", func() (any, error) {
		return s.repo.List(ctx, ListFilters{LowStock: true})
	})
	if err != nil {
		return nil, err
	}
	return v.([]Product), nil
}

// record appends an activity event; failures are logged, never surfaced.
func (s *Service) record(ctx context.Context, code, message string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, shared.ActivityEvent{ActionCode: code, Message: message}); err != nil {
		s.logger.Warn("activity log append failed", slog.String("action", code), slog.Any("error", err))
	}
}
