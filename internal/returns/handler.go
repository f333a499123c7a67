package returns

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pharmacore/pharmacore/internal/platform/httpx"
)

// Handler wires HTTP endpoints for supplier returns.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs returns handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers returns routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/credit-notes", h.handleList)
	r.Get("/credit-notes/{id}", h.handleGet)
	r.Post("/credit-notes", h.handleSubmit)
}

type submitPayload struct {
	InvoiceNumber string        `json:"invoice_number" validate:"required"`
	Supplier      string        `json:"supplier" validate:"required"`
	Date          string        `json:"date"`
	ActorID       string        `json:"actor_id"`
	Items         []itemPayload `json:"items" validate:"required,min=1,dive"`
}

type itemPayload struct {
	ProductID  string  `json:"product_id" validate:"required"`
	Quantity   int64   `json:"quantity" validate:"required,gt=0"`
	Reason     string  `json:"reason"`
	UnitCredit float64 `json:"unit_credit" validate:"gte=0"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload submitPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}

	input := SubmitInput{InvoiceNumber: payload.InvoiceNumber, Supplier: payload.Supplier, ActorID: payload.ActorID}
	if payload.Date != "" {
		date, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "date must be YYYY-MM-DD")
			return
		}
		input.Date = date
	}
	for _, item := range payload.Items {
		input.Items = append(input.Items, ItemInput{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			Reason:     item.Reason,
			UnitCredit: item.UnitCredit,
		})
	}

	noteID, err := h.service.Submit(r.Context(), input)
	if err != nil {
		h.logger.Error("credit note submit failed", slog.String("invoice", payload.InvoiceNumber), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"credit_note_id": noteID})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	note, items, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"credit_note": note, "items": items})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Supplier: r.URL.Query().Get("supplier")}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	notes, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"credit_notes": notes})
}
