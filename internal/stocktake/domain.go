package stocktake

import (
	"errors"
	"time"
)

// SessionStatus enumerates the stock-take session lifecycle.
type SessionStatus string

const (
	// StatusInProgress marks a session still being counted.
	StatusInProgress SessionStatus = "in_progress"
	// StatusCompleted marks a submitted session.
	StatusCompleted SessionStatus = "completed"
)

// Session is one bounded physical inventory count.
type Session struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Status       SessionStatus         `json:"status"`
	ProgressData map[string]CountEntry `json:"progress_data"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// CountEntry is the in-flight count for one product, keyed by product id in
// the session's progress map.
type CountEntry struct {
	ActualStock int64  `json:"actual_stock"`
	Reason      string `json:"reason"`
}

// Entry is one reconciled discrepancy, written only at session completion
// and only where the counted stock differs from the live ledger. Immutable
// afterwards.
type Entry struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	ProductID       string    `json:"product_id"`
	ProductName     string    `json:"product_name"`
	ExpectedStock   int64     `json:"expected_stock"`
	ActualStock     int64     `json:"actual_stock"`
	Difference      int64     `json:"difference"`
	ValueDifference float64   `json:"value_difference"`
	Reason          string    `json:"reason"`
	Operator        string    `json:"operator"`
	CreatedAt       time.Time `json:"created_at"`
}

// ErrNothingToReconcile rejects a submission whose counts all match the
// live ledger. The session stays in progress.
var ErrNothingToReconcile = errors.New("stocktake: nothing to reconcile")

// ErrSessionCompleted rejects mutations of an already submitted session.
var ErrSessionCompleted = errors.New("stocktake: session already completed")

// ErrSessionClosed rejects use of a handle after Close.
var ErrSessionClosed = errors.New("stocktake: session handle closed")

// preferRemoteIfPresent reconciles the two progress sources on resume. The
// remote row is authoritative whenever it holds data; the local mirror is a
// fallback only.
func preferRemoteIfPresent(remote, local map[string]CountEntry) map[string]CountEntry {
	if len(remote) > 0 {
		return remote
	}
	if len(local) > 0 {
		return local
	}
	return map[string]CountEntry{}
}
