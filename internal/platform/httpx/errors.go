package httpx

import (
	"errors"
	"net/http"

	"github.com/pharmacore/pharmacore/internal/shared"
)

// RespondError maps engine errors to HTTP responses using RFC7807. The
// detail is always the aggregate human-readable notice; operators see one
// failure message per operation.
func RespondError(w http.ResponseWriter, err error) {
	var (
		validationErr *shared.ValidationError
		stockErr      *shared.InsufficientStockError
		storeErr      *shared.StoreError
	)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate Submission", shared.UserSafeMessage(err))
	case errors.As(err, &validationErr):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", validationErr.Error())
	case errors.As(err, &stockErr):
		Problem(w, http.StatusConflict, "Insufficient Stock", stockErr.Error())
	case errors.As(err, &storeErr):
		Problem(w, http.StatusBadGateway, "Store Unavailable", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
	}
}
