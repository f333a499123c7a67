package receiving

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pharmacore/pharmacore/internal/platform/httpx"
)

// Handler wires HTTP endpoints for goods receipts.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs receiving handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers receiving routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices", h.handleList)
	r.Get("/invoices/{id}", h.handleGet)
	r.Post("/invoices", h.handleCommit)
}

type commitPayload struct {
	Number   string        `json:"number" validate:"required"`
	Supplier string        `json:"supplier" validate:"required"`
	Date     string        `json:"date"`
	ActorID  string        `json:"actor_id"`
	Items    []linePayload `json:"items" validate:"required,min=1,dive"`
}

type linePayload struct {
	Name                    string  `json:"name" validate:"required"`
	Category                string  `json:"category"`
	BatchNumber             string  `json:"batch_number"`
	ExpiryDate              string  `json:"expiry_date"`
	Quantity                int64   `json:"quantity" validate:"required,gt=0"`
	InvoicePrice            float64 `json:"invoice_price"`
	SupplierDiscountPercent float64 `json:"supplier_discount_percent" validate:"gte=0,lte=100"`
	VATRate                 float64 `json:"vat_rate"`
	OtherCharges            float64 `json:"other_charges"`
	CostPrice               float64 `json:"cost_price"`
	SellingPrice            float64 `json:"selling_price"`
	MinStockLevel           int64   `json:"min_stock_level" validate:"gte=0"`
	Barcode                 string  `json:"barcode"`
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	var payload commitPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}

	input := CommitInput{Number: payload.Number, Supplier: payload.Supplier, ActorID: payload.ActorID}
	if payload.Date != "" {
		date, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "date must be YYYY-MM-DD")
			return
		}
		input.Date = date
	}
	for _, item := range payload.Items {
		line := LineInput{
			Name:                    item.Name,
			Category:                item.Category,
			BatchNumber:             item.BatchNumber,
			Quantity:                item.Quantity,
			InvoicePrice:            item.InvoicePrice,
			SupplierDiscountPercent: item.SupplierDiscountPercent,
			VATRate:                 item.VATRate,
			OtherCharges:            item.OtherCharges,
			CostPrice:               item.CostPrice,
			SellingPrice:            item.SellingPrice,
			MinStockLevel:           item.MinStockLevel,
			Barcode:                 item.Barcode,
		}
		if item.ExpiryDate != "" {
			expiry, err := time.Parse("2006-01-02", item.ExpiryDate)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "expiry_date must be YYYY-MM-DD")
				return
			}
			line.ExpiryDate = expiry
		}
		input.Items = append(input.Items, line)
	}

	progress := func(stepIndex, totalSteps int, message string) {
		h.logger.Info("receipt commit progress",
			slog.Int("step", stepIndex),
			slog.Int("total", totalSteps),
			slog.String("message", message))
	}

	invoiceID, err := h.service.Commit(r.Context(), input, progress)
	if err != nil {
		h.logger.Error("receipt commit failed", slog.String("number", payload.Number), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"invoice_id": invoiceID})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	invoice, items, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoice": invoice, "items": items})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Supplier: r.URL.Query().Get("supplier")}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	invoices, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}
