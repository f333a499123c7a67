package shared

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("not found")

// ValidationError reports missing or malformed fields. It is raised before
// any store call is issued.
type ValidationError struct {
	Op     string
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: validation failed", e.Op)
	}
	return fmt.Sprintf("%s: missing or invalid fields: %s", e.Op, strings.Join(e.Fields, ", "))
}

// NewValidationError builds a ValidationError for the given operation.
func NewValidationError(op string, fields ...string) *ValidationError {
	return &ValidationError{Op: op, Fields: fields}
}

// InsufficientStockError reports a decrement that would drive a product's
// stock negative. It names the product and the stock still available so the
// message can be shown to the operator as-is.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

// StoreError wraps a failed persistent-store call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WrapStore wraps err as a StoreError unless it already is one.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// UserSafeMessage converts an engine error into a single human-readable
// failure notice. Store internals are not leaked to operators.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise.Error()
	}
	var se *StoreError
	if errors.As(err, &se) {
		return "the inventory store rejected the operation, please retry"
	}
	return err.Error()
}
