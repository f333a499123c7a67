package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/pharmacore/pharmacore/internal/shared"
	"github.com/pharmacore/pharmacore/internal/stocktake"
)

// MirrorSweepJob drops progress mirrors whose session no longer exists or
// was already submitted. Mirrors normally disappear with their session; this
// sweep catches the ones left behind by crashed clients.
type MirrorSweepJob struct {
	Repo   stocktake.Repository
	Mirror *stocktake.Mirror
	Logger *slog.Logger
}

// NewMirrorSweepJob initialises the sweep handler.
func NewMirrorSweepJob(repo stocktake.Repository, mirror *stocktake.Mirror, logger *slog.Logger) *MirrorSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &MirrorSweepJob{Repo: repo, Mirror: mirror, Logger: logger}
}

// Handle executes the sweep.
func (j *MirrorSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("mirror sweep: handler not configured")
	}
	var payload MirrorSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	sessionIDs, err := j.Mirror.Sessions(ctx)
	if err != nil {
		return err
	}
	swept := 0
	for _, id := range sessionIDs {
		session, err := j.Repo.GetSession(ctx, id)
		switch {
		case errors.Is(err, shared.ErrNotFound):
		case err != nil:
			j.Logger.Warn("mirror sweep session lookup failed", slog.String("session_id", id), slog.Any("error", err))
			continue
		case session.Status == stocktake.StatusInProgress:
			continue
		}
		if err := j.Mirror.Delete(ctx, id); err != nil {
			j.Logger.Warn("mirror sweep delete failed", slog.String("session_id", id), slog.Any("error", err))
			continue
		}
		swept++
	}
	j.Logger.Info("stock take mirror sweep completed",
		slog.Int("mirrored", len(sessionIDs)),
		slog.Int("swept", swept))
	return nil
}
