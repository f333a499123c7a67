package receiving

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter() http.Handler {
	svc := NewService(newMemInvoices(), newMemProducts(), nil, nil, nil)
	h := NewHandler(slog.Default(), svc)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func postCommit(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)
	return rec
}

func TestCommitPayloadRejectsNegativeDiscount(t *testing.T) {
	rec := postCommit(t, `{"number":"INV-1","supplier":"S",
		"items":[{"name":"A","quantity":1,"invoice_price":100,"supplier_discount_percent":-5}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommitPayloadAcceptsBoundaryDiscounts(t *testing.T) {
	rec := postCommit(t, `{"number":"INV-1","supplier":"S",
		"items":[{"name":"A","quantity":1,"invoice_price":100,"supplier_discount_percent":0}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postCommit(t, `{"number":"INV-2","supplier":"S",
		"items":[{"name":"B","quantity":1,"invoice_price":100,"supplier_discount_percent":100}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
}
