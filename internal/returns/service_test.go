package returns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pharmacore/pharmacore/internal/catalog"
	"github.com/pharmacore/pharmacore/internal/shared"
)

type memProducts struct {
	byID map[string]catalog.Product
}

func (m *memProducts) Get(_ context.Context, id string) (catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return catalog.Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memProducts) UpdateStock(_ context.Context, id string, stock int64) error {
	p := m.byID[id]
	p.CurrentStock = stock
	m.byID[id] = p
	return nil
}

type memNotes struct {
	headers map[string]CreditNote
	items   []CreditNoteItem
}

func newMemNotes() *memNotes {
	return &memNotes{headers: map[string]CreditNote{}}
}

func (m *memNotes) InsertCreditNote(_ context.Context, note CreditNote) error {
	m.headers[note.ID] = note
	return nil
}

func (m *memNotes) InsertCreditNoteItem(_ context.Context, item CreditNoteItem) error {
	m.items = append(m.items, item)
	return nil
}

func (m *memNotes) GetCreditNote(_ context.Context, id string) (CreditNote, []CreditNoteItem, error) {
	note, ok := m.headers[id]
	if !ok {
		return CreditNote{}, nil, shared.ErrNotFound
	}
	var items []CreditNoteItem
	for _, item := range m.items {
		if item.CreditNoteID == id {
			items = append(items, item)
		}
	}
	return note, items, nil
}

func (m *memNotes) ListCreditNotes(_ context.Context, _ ListFilter) ([]CreditNote, error) {
	var out []CreditNote
	for _, note := range m.headers {
		out = append(out, note)
	}
	return out, nil
}

func fixture() (*memProducts, *memNotes, *Service) {
	products := &memProducts{byID: map[string]catalog.Product{
		"p1": {ID: "p1", Name: "Amoxicillin 500mg", CurrentStock: 20, CostPrice: 100},
		"p2": {ID: "p2", Name: "Paracetamol 1g", CurrentStock: 3, CostPrice: 40},
	}}
	notes := newMemNotes()
	return products, notes, NewService(notes, products, nil, nil)
}

func TestSubmitCreditNote(t *testing.T) {
	products, _, svc := fixture()
	ctx := context.Background()

	id, err := svc.Submit(ctx, SubmitInput{
		InvoiceNumber: "INV-2026-001",
		Supplier:      "MedSupply Ltd",
		Items: []ItemInput{
			{ProductID: "p1", Quantity: 5, Reason: "expired", UnitCredit: 100},
			{ProductID: "p2", Quantity: 2, Reason: "damaged", UnitCredit: 40},
		},
	})
	require.NoError(t, err)

	require.EqualValues(t, 15, products.byID["p1"].CurrentStock)
	require.EqualValues(t, 1, products.byID["p2"].CurrentStock)

	note, items, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.InDelta(t, 5*100+2*40, note.TotalAmount, 0.0001)
	require.Equal(t, "expired", items[0].Reason)
	require.InDelta(t, 500, items[0].TotalCredit, 0.0001)
}

func TestSubmitRejectsInsufficientStock(t *testing.T) {
	products, notes, svc := fixture()
	ctx := context.Background()

	// p2 only has 3 units; the second line must fail, but the first line
	// stays committed. Current behavior, asserted on purpose.
	_, err := svc.Submit(ctx, SubmitInput{
		InvoiceNumber: "INV-2026-002",
		Supplier:      "MedSupply Ltd",
		Items: []ItemInput{
			{ProductID: "p1", Quantity: 4, UnitCredit: 100},
			{ProductID: "p2", Quantity: 10, UnitCredit: 40},
		},
	})
	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, "Paracetamol 1g", stockErr.ProductName)
	require.EqualValues(t, 3, stockErr.Available)
	require.EqualValues(t, 10, stockErr.Requested)

	// First line committed, second untouched.
	require.EqualValues(t, 16, products.byID["p1"].CurrentStock)
	require.EqualValues(t, 3, products.byID["p2"].CurrentStock)
	require.Len(t, notes.items, 1)

	// The header row was inserted before the loop and also remains.
	require.Len(t, notes.headers, 1)
}

func TestSubmitValidation(t *testing.T) {
	_, _, svc := fixture()
	ctx := context.Background()

	cases := []SubmitInput{
		{Supplier: "S", Items: []ItemInput{{ProductID: "p1", Quantity: 1}}},
		{InvoiceNumber: "N", Items: []ItemInput{{ProductID: "p1", Quantity: 1}}},
		{InvoiceNumber: "N", Supplier: "S"},
		{InvoiceNumber: "N", Supplier: "S", Items: []ItemInput{{Quantity: 1}}},
		{InvoiceNumber: "N", Supplier: "S", Items: []ItemInput{{ProductID: "p1"}}},
	}
	for _, input := range cases {
		_, err := svc.Submit(ctx, input)
		var ve *shared.ValidationError
		require.ErrorAs(t, err, &ve)
	}
}

type memActivity struct {
	events []shared.ActivityEvent
}

func (m *memActivity) Record(_ context.Context, event shared.ActivityEvent) error {
	m.events = append(m.events, event)
	return nil
}

func TestSubmitRecordsActor(t *testing.T) {
	products := &memProducts{byID: map[string]catalog.Product{
		"p1": {ID: "p1", Name: "Amoxicillin 500mg", CurrentStock: 20},
	}}
	activity := &memActivity{}
	svc := NewService(newMemNotes(), products, activity, nil)

	_, err := svc.Submit(context.Background(), SubmitInput{
		InvoiceNumber: "INV-2026-001",
		Supplier:      "MedSupply Ltd",
		ActorID:       "user-3",
		Items:         []ItemInput{{ProductID: "p1", Quantity: 2, UnitCredit: 50}},
	})
	require.NoError(t, err)
	require.Len(t, activity.events, 1)
	require.Equal(t, "credit_note_created", activity.events[0].ActionCode)
	require.Equal(t, "user-3", activity.events[0].ActorID)
}

func TestSubmitUnknownProduct(t *testing.T) {
	_, _, svc := fixture()
	_, err := svc.Submit(context.Background(), SubmitInput{
		InvoiceNumber: "N",
		Supplier:      "S",
		Items:         []ItemInput{{ProductID: "ghost", Quantity: 1}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
