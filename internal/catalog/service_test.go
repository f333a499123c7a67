package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pharmacore/pharmacore/internal/shared"
)

type memRepo struct {
	byID      map[string]Product
	listCalls int
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]Product{}}
}

func (r *memRepo) List(_ context.Context, filters ListFilters) ([]Product, error) {
	r.listCalls++
	var out []Product
	for _, p := range r.byID {
		if filters.LowStock && !p.LowOnStock() {
			continue
		}
		if filters.Category != "" && p.Category != filters.Category {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *memRepo) Get(_ context.Context, id string) (Product, error) {
	p, ok := r.byID[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memRepo) FindByNameBatch(_ context.Context, name, batch string) (Product, error) {
	key := NormalizeName(name)
	for _, p := range r.byID {
		if NormalizeName(p.Name) == key && p.BatchNumber == batch {
			return p, nil
		}
	}
	return Product{}, shared.ErrNotFound
}

func (r *memRepo) Insert(_ context.Context, p Product) error {
	r.byID[p.ID] = p
	return nil
}

func (r *memRepo) Update(_ context.Context, p Product) error {
	if _, ok := r.byID[p.ID]; !ok {
		return shared.ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *memRepo) UpdateStock(_ context.Context, id string, stock int64) error {
	p, ok := r.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.CurrentStock = stock
	r.byID[id] = p
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

func TestCreateDerivesPricing(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)

	product, err := svc.Create(context.Background(), ProductInput{
		Name:                    "Amoxicillin 500mg",
		InvoicePrice:            1000,
		SupplierDiscountPercent: 10,
		VATRate:                 16,
		OtherCharges:            50,
		CurrentStock:            20,
	})
	require.NoError(t, err)
	require.NotEmpty(t, product.ID)
	require.InDelta(t, 1264.4, product.CostPrice, 0.0001)
	require.InDelta(t, 1264.4*1.33, product.SellingPrice, 0.0001)
	require.Len(t, repo.byID, 1)
}

func TestCreateEnforcesMinimumSellingPrice(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)

	// Requested price below the floor is raised to it.
	product, err := svc.Create(context.Background(), ProductInput{
		Name: "Paracetamol 1g", CostPrice: 100, SellingPrice: 110,
	})
	require.NoError(t, err)
	require.InDelta(t, 133, product.SellingPrice, 0.0001)

	// Above the floor the request stands.
	product, err = svc.Create(context.Background(), ProductInput{
		Name: "Ibuprofen 400mg", CostPrice: 100, SellingPrice: 180,
	})
	require.NoError(t, err)
	require.InDelta(t, 180, product.SellingPrice, 0.0001)
}

func TestCreateRejectsNegativeStock(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	_, err := svc.Create(context.Background(), ProductInput{Name: "X", CurrentStock: -1})
	require.ErrorIs(t, err, ErrInvalidStock)
}

func TestUpdateRederivesPricing(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	product, err := svc.Create(ctx, ProductInput{Name: "Cetirizine 10mg", CostPrice: 40, CurrentStock: 5})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, product.ID, ProductInput{
		Name: "Cetirizine 10mg", InvoicePrice: 200, VATRate: 16, CurrentStock: 5,
	})
	require.NoError(t, err)
	require.InDelta(t, 232, updated.CostPrice, 0.0001)
	require.InDelta(t, 232*1.33, updated.SellingPrice, 0.0001)
}

func TestLowStockListing(t *testing.T) {
	repo := newMemRepo()
	repo.byID["p1"] = Product{ID: "p1", Name: "A", CurrentStock: 5, MinStockLevel: 10}
	repo.byID["p2"] = Product{ID: "p2", Name: "B", CurrentStock: 50, MinStockLevel: 10}
	svc := NewService(repo, nil, nil)

	products, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "p1", products[0].ID)
}

func TestNormalizeName(t *testing.T) {
	require.Equal(t, NormalizeName("Amoxicillin  500mg"), NormalizeName("amoxicillin 500MG"))
	require.Equal(t, NormalizeName(" a  b "), NormalizeName("A B"))
	require.NotEqual(t, NormalizeName("Amoxicillin 500mg"), NormalizeName("Amoxicillin 250mg"))
}
