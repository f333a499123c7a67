package stocktake

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore/pharmacore/internal/shared"
)

// SessionHandle is the explicit handle for one open counting session. All
// count entries go through the handle; nothing touches the store until a
// save or submission.
type SessionHandle struct {
	svc  *Service
	id   string
	name string

	mu       sync.Mutex
	progress map[string]CountEntry
	timer    *time.Timer
	closed   bool
}

// ID returns the session id.
func (h *SessionHandle) ID() string { return h.id }

// Name returns the session name at open time.
func (h *SessionHandle) Name() string { return h.name }

// Progress returns a copy of the in-flight progress map.
func (h *SessionHandle) Progress() map[string]CountEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]CountEntry, len(h.progress))
	for k, v := range h.progress {
		out[k] = v
	}
	return out
}

// EnterCount records the counted stock for one product in memory and
// reschedules the autosave timer. Nothing is persisted until a save runs.
func (h *SessionHandle) EnterCount(productID string, actualStock int64, reason string) error {
	if productID == "" {
		return shared.NewValidationError("stocktake.count", "product_id")
	}
	if actualStock < 0 {
		return shared.NewValidationError("stocktake.count", "actual_stock")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrSessionClosed
	}
	h.progress[productID] = CountEntry{ActualStock: actualStock, Reason: reason}
	h.scheduleAutosaveLocked()
	return nil
}

// scheduleAutosaveLocked debounces: every edit pushes the save out by the
// configured delay. Caller holds h.mu.
func (h *SessionHandle) scheduleAutosaveLocked() {
	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(h.svc.autosave, h.autosave)
}

func (h *SessionHandle) autosave() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.SaveProgress(ctx); err != nil {
		h.svc.logger.Warn("stock take autosave failed", slog.String("session_id", h.id), slog.Any("error", err))
	}
}

// SaveProgress persists the progress map to the remote session row and
// mirrors it to the local cache. The remote write decides success; a mirror
// failure is logged only.
func (h *SessionHandle) SaveProgress(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrSessionClosed
	}
	snapshot := make(map[string]CountEntry, len(h.progress))
	for k, v := range h.progress {
		snapshot[k] = v
	}
	h.mu.Unlock()

	if err := h.svc.repo.UpdateSessionProgress(ctx, h.id, snapshot); err != nil {
		return err
	}
	if err := h.svc.mirror.SaveProgress(ctx, h.id, snapshot); err != nil {
		h.svc.logger.Warn("stock take mirror write failed", slog.String("session_id", h.id), slog.Any("error", err))
	}
	return nil
}

// Submit reconciles the counted stock against the live ledger. Expected
// stock is read at submission time, not at session start. Only products
// whose counted stock differs from the ledger produce an entry; a
// submission producing none is rejected and the session stays in progress.
// On success the session completes, its server-side progress map is cleared
// and the local mirror is removed.
func (h *SessionHandle) Submit(ctx context.Context, operator string) ([]Entry, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrSessionClosed
	}
	snapshot := make(map[string]CountEntry, len(h.progress))
	for k, v := range h.progress {
		snapshot[k] = v
	}
	h.mu.Unlock()

	productIDs := make([]string, 0, len(snapshot))
	for id := range snapshot {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	now := time.Now().UTC()
	var entries []Entry
	for _, productID := range productIDs {
		count := snapshot[productID]
		product, err := h.svc.products.Get(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("stocktake: submit %s: product %s: %w", h.id, productID, err)
		}
		expected := product.CurrentStock
		difference := count.ActualStock - expected
		if difference == 0 {
			continue
		}
		entries = append(entries, Entry{
			ID:              uuid.NewString(),
			SessionID:       h.id,
			ProductID:       product.ID,
			ProductName:     product.Name,
			ExpectedStock:   expected,
			ActualStock:     count.ActualStock,
			Difference:      difference,
			ValueDifference: float64(difference) * product.CostPrice,
			Reason:          count.Reason,
			Operator:        operator,
			CreatedAt:       now,
		})
	}
	if len(entries) == 0 {
		return nil, ErrNothingToReconcile
	}

	if err := h.svc.repo.InsertEntries(ctx, entries); err != nil {
		return nil, fmt.Errorf("stocktake: submit %s: %w", h.id, err)
	}
	// Align the ledger with the counted stock. No compensation on this
	// path: a failure here leaves the entries and earlier stock writes
	// committed.
	for _, entry := range entries {
		if err := h.svc.products.UpdateStock(ctx, entry.ProductID, entry.ActualStock); err != nil {
			return nil, fmt.Errorf("stocktake: submit %s: adjust %s: %w", h.id, entry.ProductName, err)
		}
	}
	if err := h.svc.repo.CompleteSession(ctx, h.id); err != nil {
		return nil, fmt.Errorf("stocktake: submit %s: %w", h.id, err)
	}
	if err := h.svc.mirror.Delete(ctx, h.id); err != nil {
		h.svc.logger.Warn("stock take mirror delete failed", slog.String("session_id", h.id), slog.Any("error", err))
	}

	h.mu.Lock()
	h.progress = map[string]CountEntry{}
	h.mu.Unlock()
	h.Close()

	h.svc.record(ctx, "stock_take_completed",
		fmt.Sprintf("Stock take %q completed with %d discrepancies", h.name, len(entries)))
	return entries, nil
}

// Close cancels the autosave timer and invalidates the handle. In-memory
// counts not yet saved are dropped; the remote row and mirror keep whatever
// the last save wrote.
func (h *SessionHandle) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.mu.Unlock()
	h.svc.detach(h)
}
