package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockTakeMirrorSweep removes orphaned stock-take progress mirrors.
	TaskStockTakeMirrorSweep = "stocktake:mirror_sweep"
	// TaskLowStockScan reports products at or below their reorder level.
	TaskLowStockScan = "catalog:lowstock_scan"
)

// MirrorSweepPayload carries scheduling metadata.
type MirrorSweepPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewMirrorSweepTask constructs an Asynq task for the mirror sweep.
func NewMirrorSweepTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(MirrorSweepPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockTakeMirrorSweep, body, asynq.Queue(QueueDefault)), nil
}

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the low-stock scan.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}
