package receiving

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pharmacore/pharmacore/internal/catalog"
	"github.com/pharmacore/pharmacore/internal/shared"
)

type memProducts struct {
	byID        map[string]catalog.Product
	failUpdates int // fail the nth Update call (1-based), 0 disables
	updateCalls int
	stockWrites map[string][]int64
}

func newMemProducts(seed ...catalog.Product) *memProducts {
	m := &memProducts{byID: map[string]catalog.Product{}, stockWrites: map[string][]int64{}}
	for _, p := range seed {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memProducts) FindByNameBatch(_ context.Context, name, batch string) (catalog.Product, error) {
	key := catalog.NormalizeName(name)
	for _, p := range m.byID {
		if catalog.NormalizeName(p.Name) == key && p.BatchNumber == batch {
			return p, nil
		}
	}
	return catalog.Product{}, shared.ErrNotFound
}

func (m *memProducts) Insert(_ context.Context, p catalog.Product) error {
	m.byID[p.ID] = p
	return nil
}

func (m *memProducts) Update(_ context.Context, p catalog.Product) error {
	m.updateCalls++
	if m.failUpdates > 0 && m.updateCalls == m.failUpdates {
		return &shared.StoreError{Op: "products.update", Err: errors.New("connection reset")}
	}
	m.byID[p.ID] = p
	return nil
}

func (m *memProducts) UpdateStock(_ context.Context, id string, stock int64) error {
	p, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.CurrentStock = stock
	m.byID[id] = p
	m.stockWrites[id] = append(m.stockWrites[id], stock)
	return nil
}

type memInvoices struct {
	headers         map[string]Invoice
	items           []InvoiceItem
	failInsertItems bool
}

func newMemInvoices() *memInvoices {
	return &memInvoices{headers: map[string]Invoice{}}
}

func (m *memInvoices) InsertInvoice(_ context.Context, invoice Invoice) error {
	m.headers[invoice.ID] = invoice
	return nil
}

func (m *memInvoices) DeleteInvoice(_ context.Context, id string) error {
	delete(m.headers, id)
	return nil
}

func (m *memInvoices) InsertInvoiceItems(_ context.Context, items []InvoiceItem) error {
	if m.failInsertItems {
		return &shared.StoreError{Op: "invoice_items.insert", Err: errors.New("timeout")}
	}
	m.items = append(m.items, items...)
	return nil
}

func (m *memInvoices) GetInvoice(_ context.Context, id string) (Invoice, []InvoiceItem, error) {
	invoice, ok := m.headers[id]
	if !ok {
		return Invoice{}, nil, shared.ErrNotFound
	}
	var items []InvoiceItem
	for _, item := range m.items {
		if item.InvoiceID == id {
			items = append(items, item)
		}
	}
	return invoice, items, nil
}

func (m *memInvoices) ListInvoices(_ context.Context, _ ListFilter) ([]Invoice, error) {
	var out []Invoice
	for _, invoice := range m.headers {
		out = append(out, invoice)
	}
	return out, nil
}

type memIdempotency struct {
	keys map[string]bool
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{keys: map[string]bool{}}
}

func (m *memIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memIdempotency) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type memActivity struct {
	events []shared.ActivityEvent
}

func (m *memActivity) Record(_ context.Context, event shared.ActivityEvent) error {
	m.events = append(m.events, event)
	return nil
}

func seedProduct(id, name, batch string, stock int64) catalog.Product {
	return catalog.Product{ID: id, Name: name, BatchNumber: batch, CurrentStock: stock, CostPrice: 100, SellingPrice: 133}
}

func TestCommitReceipt(t *testing.T) {
	products := newMemProducts(seedProduct("p1", "Amoxicillin 500mg", "B-01", 10))
	invoices := newMemInvoices()
	svc := NewService(invoices, products, nil, nil, nil)
	ctx := context.Background()

	input := CommitInput{
		Number:   "INV-2026-001",
		Supplier: "MedSupply Ltd",
		Items: []LineInput{
			{Name: "amoxicillin 500MG", BatchNumber: "B-01", Quantity: 5, InvoicePrice: 1000, SupplierDiscountPercent: 10, VATRate: 16, OtherCharges: 50},
			{Name: "Paracetamol 1g", BatchNumber: "B-77", Quantity: 30, InvoicePrice: 200, MinStockLevel: 12},
		},
	}

	invoiceID, err := svc.Commit(ctx, input, nil)
	require.NoError(t, err)
	require.NotEmpty(t, invoiceID)

	// Existing product matched case-insensitively, stock incremented,
	// pricing refreshed from the invoice terms.
	existing := products.byID["p1"]
	require.EqualValues(t, 15, existing.CurrentStock)
	require.InDelta(t, 1264.4, existing.CostPrice, 0.0001)
	require.InDelta(t, 1264.4*1.33, existing.SellingPrice, 0.0001)

	// Unknown product inserted with stock equal to the received quantity.
	require.Len(t, products.byID, 2)
	var created catalog.Product
	for id, p := range products.byID {
		if id != "p1" {
			created = p
		}
	}
	require.Equal(t, "Paracetamol 1g", created.Name)
	require.EqualValues(t, 30, created.CurrentStock)
	require.EqualValues(t, 12, created.MinStockLevel)
	require.InDelta(t, 200, created.CostPrice, 0.0001)

	invoice, items, err := svc.Get(ctx, invoiceID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.InDelta(t, 5*1264.4+30*200, invoice.TotalAmount, 0.0001)
	require.InDelta(t, items[0].LineTotal+items[1].LineTotal, invoice.TotalAmount, 0.0001)
}

func TestCommitProgressNotifications(t *testing.T) {
	products := newMemProducts()
	invoices := newMemInvoices()
	svc := NewService(invoices, products, nil, nil, nil)

	type tick struct {
		index, total int
		message      string
	}
	var ticks []tick
	notify := func(stepIndex, totalSteps int, message string) {
		ticks = append(ticks, tick{stepIndex, totalSteps, message})
	}

	_, err := svc.Commit(context.Background(), CommitInput{
		Number:   "INV-1",
		Supplier: "S",
		Items: []LineInput{
			{Name: "A", Quantity: 1, CostPrice: 10},
			{Name: "B", Quantity: 2, CostPrice: 20},
		},
	}, notify)
	require.NoError(t, err)

	// Header + one per line + item batch.
	require.Len(t, ticks, 4)
	for i, tk := range ticks {
		require.Equal(t, i+1, tk.index)
		require.Equal(t, 4, tk.total)
		require.NotEmpty(t, tk.message)
	}
}

func TestCommitRollbackRestoresTouchedStock(t *testing.T) {
	products := newMemProducts(
		seedProduct("p1", "Ibuprofen 400mg", "L-1", 40),
		seedProduct("p2", "Cetirizine 10mg", "L-2", 25),
	)
	products.failUpdates = 2 // second product update fails
	invoices := newMemInvoices()
	svc := NewService(invoices, products, nil, nil, nil)

	_, err := svc.Commit(context.Background(), CommitInput{
		Number:   "INV-9",
		Supplier: "S",
		Items: []LineInput{
			{Name: "Ibuprofen 400mg", BatchNumber: "L-1", Quantity: 10, CostPrice: 50},
			{Name: "Cetirizine 10mg", BatchNumber: "L-2", Quantity: 5, CostPrice: 30},
		},
	}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "rollback was attempted")

	// First product restored to its pre-commit stock, second never changed.
	require.EqualValues(t, 40, products.byID["p1"].CurrentStock)
	require.EqualValues(t, 25, products.byID["p2"].CurrentStock)
	require.Equal(t, []int64{40}, products.stockWrites["p1"])

	// Header deleted during compensation; no item rows written.
	require.Empty(t, invoices.headers)
	require.Empty(t, invoices.items)
}

func TestCommitRollbackLeavesNewProducts(t *testing.T) {
	products := newMemProducts(seedProduct("p1", "Omeprazole 20mg", "O-3", 12))
	invoices := newMemInvoices()
	invoices.failInsertItems = true
	svc := NewService(invoices, products, nil, nil, nil)

	_, err := svc.Commit(context.Background(), CommitInput{
		Number:   "INV-12",
		Supplier: "S",
		Items: []LineInput{
			{Name: "Brand-New Syrup", BatchNumber: "N-1", Quantity: 8, CostPrice: 15},
			{Name: "Omeprazole 20mg", BatchNumber: "O-3", Quantity: 4, CostPrice: 20},
		},
	}, nil)
	require.Error(t, err)

	// Existing product restored, header deleted.
	require.EqualValues(t, 12, products.byID["p1"].CurrentStock)
	require.Empty(t, invoices.headers)

	// The newly inserted product row is left in place on purpose.
	require.Len(t, products.byID, 2)
	found := false
	for _, p := range products.byID {
		if p.Name == "Brand-New Syrup" {
			found = true
			require.EqualValues(t, 8, p.CurrentStock)
		}
	}
	require.True(t, found)
}

func TestCommitDuplicateRejected(t *testing.T) {
	products := newMemProducts(seedProduct("p1", "Amoxicillin 500mg", "B-01", 10))
	invoices := newMemInvoices()
	idem := newMemIdempotency()
	svc := NewService(invoices, products, nil, idem, nil)
	ctx := context.Background()

	input := CommitInput{
		Number:   "INV-2026-001",
		Supplier: "MedSupply Ltd",
		Items:    []LineInput{{Name: "Amoxicillin 500mg", BatchNumber: "B-01", Quantity: 5, CostPrice: 100}},
	}

	_, err := svc.Commit(ctx, input, nil)
	require.NoError(t, err)
	require.True(t, idem.keys["receipt:INV-2026-001:MedSupply Ltd"])
	require.EqualValues(t, 15, products.byID["p1"].CurrentStock)

	_, err = svc.Commit(ctx, input, nil)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)

	// The duplicate was rejected before any store write.
	require.Len(t, invoices.headers, 1)
	require.Len(t, invoices.items, 1)
	require.EqualValues(t, 15, products.byID["p1"].CurrentStock)
}

func TestCommitFailureReleasesIdempotencyKey(t *testing.T) {
	products := newMemProducts(seedProduct("p1", "Ibuprofen 400mg", "L-1", 40))
	invoices := newMemInvoices()
	invoices.failInsertItems = true
	idem := newMemIdempotency()
	svc := NewService(invoices, products, nil, idem, nil)
	ctx := context.Background()

	input := CommitInput{
		Number:   "INV-9",
		Supplier: "S",
		Items:    []LineInput{{Name: "Ibuprofen 400mg", BatchNumber: "L-1", Quantity: 10, CostPrice: 50}},
	}

	_, err := svc.Commit(ctx, input, nil)
	require.Error(t, err)

	// Key released on failure so the same receipt may be retried.
	require.False(t, idem.keys["receipt:INV-9:S"])

	invoices.failInsertItems = false
	invoiceID, err := svc.Commit(ctx, input, nil)
	require.NoError(t, err)
	require.NotEmpty(t, invoiceID)
	require.True(t, idem.keys["receipt:INV-9:S"])
	require.EqualValues(t, 50, products.byID["p1"].CurrentStock)
}

func TestCommitRecordsActor(t *testing.T) {
	activity := &memActivity{}
	svc := NewService(newMemInvoices(), newMemProducts(), activity, nil, nil)

	_, err := svc.Commit(context.Background(), CommitInput{
		Number:   "INV-3",
		Supplier: "S",
		ActorID:  "user-7",
		Items:    []LineInput{{Name: "A", Quantity: 1, CostPrice: 10}},
	}, nil)
	require.NoError(t, err)
	require.Len(t, activity.events, 1)
	require.Equal(t, "invoice_committed", activity.events[0].ActionCode)
	require.Equal(t, "user-7", activity.events[0].ActorID)
}

func TestCommitValidation(t *testing.T) {
	svc := NewService(newMemInvoices(), newMemProducts(), nil, nil, nil)
	ctx := context.Background()

	cases := []CommitInput{
		{Supplier: "S", Items: []LineInput{{Name: "A", Quantity: 1}}},
		{Number: "N", Items: []LineInput{{Name: "A", Quantity: 1}}},
		{Number: "N", Supplier: "S"},
		{Number: "N", Supplier: "S", Items: []LineInput{{Quantity: 1}}},
		{Number: "N", Supplier: "S", Items: []LineInput{{Name: "A", Quantity: 0}}},
	}
	for i, input := range cases {
		_, err := svc.Commit(ctx, input, nil)
		var ve *shared.ValidationError
		require.ErrorAs(t, err, &ve, fmt.Sprintf("case %d", i))
	}
}
