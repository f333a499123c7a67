package stocktake

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pharmacore/pharmacore/internal/catalog"
	"github.com/pharmacore/pharmacore/internal/shared"
)

// ProductStore exposes the single-record product calls submissions need.
// catalog.Repository satisfies it.
type ProductStore interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	UpdateStock(ctx context.Context, id string, stock int64) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// AutosaveDelay is the debounce window between the last count entry and
	// the automatic progress save. Zero selects the default.
	AutosaveDelay time.Duration
}

const defaultAutosaveDelay = 3 * time.Second

// Service manages stock-take sessions. Every operation takes an explicit
// session handle or id; there is no ambient current-session state beyond
// the bookkeeping needed to cancel the previous handle's autosave timer
// when another session is opened.
type Service struct {
	repo     Repository
	products ProductStore
	mirror   *Mirror
	activity shared.ActivityPort
	logger   *slog.Logger
	autosave time.Duration

	mu     sync.Mutex
	active *SessionHandle
}

// NewService builds Service.
func NewService(repo Repository, products ProductStore, mirror *Mirror, activity shared.ActivityPort, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	delay := cfg.AutosaveDelay
	if delay <= 0 {
		delay = defaultAutosaveDelay
	}
	return &Service{repo: repo, products: products, mirror: mirror, activity: activity, logger: logger, autosave: delay}
}

// Start creates a new in-progress session and returns its handle. Any
// previously active handle is closed, which cancels its autosave timer.
func (s *Service) Start(ctx context.Context, name string) (*SessionHandle, error) {
	if name == "" {
		return nil, shared.NewValidationError("stocktake.start", "name")
	}
	now := time.Now().UTC()
	session := Session{
		ID:           uuid.NewString(),
		Name:         name,
		Status:       StatusInProgress,
		ProgressData: map[string]CountEntry{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertSession(ctx, session); err != nil {
		return nil, err
	}
	s.record(ctx, "stock_take_started", fmt.Sprintf("Stock take %q started", name))
	return s.attach(session.ID, session.Name, map[string]CountEntry{}), nil
}

// Open resumes an existing session. The remote progress map wins when it
// holds data; otherwise the local mirror for this session id is used;
// otherwise counting starts empty.
func (s *Service) Open(ctx context.Context, id string) (*SessionHandle, error) {
	if id == "" {
		return nil, shared.NewValidationError("stocktake.open", "id")
	}
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status == StatusCompleted {
		return nil, ErrSessionCompleted
	}
	local, err := s.mirror.LoadProgress(ctx, id)
	if err != nil {
		s.logger.Warn("stock take mirror read failed", slog.String("session_id", id), slog.Any("error", err))
		local = nil
	}
	progress := preferRemoteIfPresent(session.ProgressData, local)
	return s.attach(session.ID, session.Name, progress), nil
}

// attach builds the handle and makes it the active one, closing the
// previous handle so two autosave timers never run at once.
func (s *Service) attach(id, name string, progress map[string]CountEntry) *SessionHandle {
	handle := &SessionHandle{svc: s, id: id, name: name, progress: progress}
	s.mu.Lock()
	previous := s.active
	s.active = handle
	s.mu.Unlock()
	if previous != nil {
		previous.Close()
	}
	return handle
}

func (s *Service) detach(handle *SessionHandle) {
	s.mu.Lock()
	if s.active == handle {
		s.active = nil
	}
	s.mu.Unlock()
}

// Rename updates the session name only.
func (s *Service) Rename(ctx context.Context, id, name string) error {
	if id == "" || name == "" {
		return shared.NewValidationError("stocktake.rename", "id", "name")
	}
	if err := s.repo.UpdateSessionName(ctx, id, name); err != nil {
		return err
	}
	s.record(ctx, "stock_take_renamed", fmt.Sprintf("Stock take renamed to %q", name))
	return nil
}

// Delete removes the session unconditionally, in either state. Stock
// effects committed by a prior submission are not reversed. The local
// mirror for the session id is dropped as well.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return shared.NewValidationError("stocktake.delete", "id")
	}
	if err := s.repo.DeleteSession(ctx, id); err != nil {
		return err
	}
	if err := s.mirror.Delete(ctx, id); err != nil {
		s.logger.Warn("stock take mirror delete failed", slog.String("session_id", id), slog.Any("error", err))
	}
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active != nil && active.id == id {
		active.Close()
	}
	s.record(ctx, "stock_take_deleted", fmt.Sprintf("Stock take session %s deleted", id))
	return nil
}

// List returns sessions, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Session, error) {
	return s.repo.ListSessions(ctx, limit)
}

// Entries returns the discrepancy rows of a session.
func (s *Service) Entries(ctx context.Context, sessionID string) ([]Entry, error) {
	if sessionID == "" {
		return nil, shared.NewValidationError("stocktake.entries", "session_id")
	}
	return s.repo.ListEntries(ctx, sessionID)
}

func (s *Service) record(ctx context.Context, code, message string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, shared.ActivityEvent{ActionCode: code, Message: message}); err != nil {
		s.logger.Warn("activity log append failed", slog.String("action", code), slog.Any("error", err))
	}
}
