package catalog

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pharmacore/pharmacore/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the product catalog.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.handleList)
	r.Get("/products/low-stock", h.handleLowStock)
	r.Get("/products/{id}", h.handleGet)
	r.Post("/products", h.handleCreate)
	r.Put("/products/{id}", h.handleUpdate)
	r.Delete("/products/{id}", h.handleDelete)
}

type productPayload struct {
	Name                    string  `json:"name" validate:"required"`
	Category                string  `json:"category"`
	Supplier                string  `json:"supplier"`
	BatchNumber             string  `json:"batch_number"`
	ExpiryDate              string  `json:"expiry_date"`
	InvoicePrice            float64 `json:"invoice_price"`
	SupplierDiscountPercent float64 `json:"supplier_discount_percent" validate:"gte=0,lte=100"`
	VATRate                 float64 `json:"vat_rate"`
	OtherCharges            float64 `json:"other_charges"`
	CostPrice               float64 `json:"cost_price"`
	SellingPrice            float64 `json:"selling_price"`
	CurrentStock            int64   `json:"current_stock" validate:"gte=0"`
	MinStockLevel           int64   `json:"min_stock_level" validate:"gte=0"`
	Barcode                 string  `json:"barcode"`
}

func (h *Handler) decodePayload(r *http.Request, payload *productPayload) (ProductInput, error) {
	if err := httpx.DecodeJSON(r, payload); err != nil {
		return ProductInput{}, err
	}
	if err := h.validate.Struct(payload); err != nil {
		return ProductInput{}, err
	}
	input := ProductInput{
		Name:                    payload.Name,
		Category:                payload.Category,
		Supplier:                payload.Supplier,
		BatchNumber:             payload.BatchNumber,
		InvoicePrice:            payload.InvoicePrice,
		SupplierDiscountPercent: payload.SupplierDiscountPercent,
		VATRate:                 payload.VATRate,
		OtherCharges:            payload.OtherCharges,
		CostPrice:               payload.CostPrice,
		SellingPrice:            payload.SellingPrice,
		CurrentStock:            payload.CurrentStock,
		MinStockLevel:           payload.MinStockLevel,
		Barcode:                 payload.Barcode,
	}
	if payload.ExpiryDate != "" {
		expiry, err := time.Parse("2006-01-02", payload.ExpiryDate)
		if err != nil {
			return ProductInput{}, err
		}
		input.ExpiryDate = expiry
	}
	return input, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{
		Category: q.Get("category"),
		Supplier: q.Get("supplier"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		filters.Offset = offset
	}
	products, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.LowStock(r.Context())
	if err != nil {
		h.logger.Error("list low stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	input, err := h.decodePayload(r, &payload)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	product, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	input, err := h.decodePayload(r, &payload)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	product, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
