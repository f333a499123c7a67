package stocktake

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pharmacore/pharmacore/internal/platform/httpx"
)

// Handler wires HTTP endpoints for stock-take sessions. Each request opens
// an explicit session handle, applies the operation and closes it again;
// the debounced autosave matters for embedded callers that keep a handle
// open across many count entries.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs stocktake handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers stock-take routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stock-takes", h.handleList)
	r.Post("/stock-takes", h.handleStart)
	r.Get("/stock-takes/{id}/entries", h.handleEntries)
	r.Post("/stock-takes/{id}/counts", h.handleCount)
	r.Post("/stock-takes/{id}/submit", h.handleSubmit)
	r.Put("/stock-takes/{id}/name", h.handleRename)
	r.Delete("/stock-takes/{id}", h.handleDelete)
}

// respondError adds the session-state sentinels to the shared error mapping.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionCompleted):
		httpx.Problem(w, http.StatusConflict, "Session Completed", err.Error())
	case errors.Is(err, ErrSessionClosed):
		httpx.Problem(w, http.StatusConflict, "Session Closed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

type startPayload struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var payload startPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	handle, err := h.service.Start(r.Context(), payload.Name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	defer handle.Close()
	httpx.JSON(w, http.StatusCreated, map[string]string{"session_id": handle.ID()})
}

type countPayload struct {
	ProductID   string `json:"product_id" validate:"required"`
	ActualStock int64  `json:"actual_stock" validate:"gte=0"`
	Reason      string `json:"reason"`
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	var payload countPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	handle, err := h.service.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	defer handle.Close()
	if err := handle.EnterCount(payload.ProductID, payload.ActualStock, payload.Reason); err != nil {
		h.respondError(w, err)
		return
	}
	if err := handle.SaveProgress(r.Context()); err != nil {
		h.logger.Error("stock take save failed", slog.String("session_id", handle.ID()), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"progress": handle.Progress()})
}

type submitPayload struct {
	Operator string `json:"operator"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload submitPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	handle, err := h.service.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	defer handle.Close()
	entries, err := handle.Submit(r.Context(), payload.Operator)
	if errors.Is(err, ErrNothingToReconcile) {
		httpx.Problem(w, http.StatusConflict, "Nothing To Reconcile",
			"all counted quantities match the ledger, the session remains in progress")
		return
	}
	if err != nil {
		h.logger.Error("stock take submit failed", slog.String("session_id", handle.ID()), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

type renamePayload struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	var payload renamePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.service.Rename(r.Context(), chi.URLParam(r, "id"), payload.Name); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	sessions, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) handleEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Entries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}
